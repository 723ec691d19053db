package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	playlistRequests   atomic.Int64
	playlistItems      atomic.Int64
	reactionsCreated   atomic.Int64
	reactionsDuplicate atomic.Int64
	syncRuns           atomic.Int64
	syncFailures       atomic.Int64
	syncCreated        atomic.Int64
	syncUpdated        atomic.Int64
	streamRedirects    atomic.Int64
)

func ObservePlaylistServed(items int) {
	playlistRequests.Add(1)
	playlistItems.Add(int64(items))
}

func ObserveReaction(created bool) {
	if created {
		reactionsCreated.Add(1)
		return
	}
	reactionsDuplicate.Add(1)
}

func ObserveSync(created, updated int, err error) {
	syncRuns.Add(1)
	if err != nil {
		syncFailures.Add(1)
		return
	}
	syncCreated.Add(int64(created))
	syncUpdated.Add(int64(updated))
}

func ObserveStreamRedirect() {
	streamRedirects.Add(1)
}

// Reset zeroes every counter. Tests only.
func Reset() {
	for _, c := range []*atomic.Int64{
		&playlistRequests, &playlistItems, &reactionsCreated, &reactionsDuplicate,
		&syncRuns, &syncFailures, &syncCreated, &syncUpdated, &streamRedirects,
	} {
		c.Store(0)
	}
}

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	})
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeCounter(w, "swiperflix_playlist_requests_total", "Playlist pages served.", playlistRequests.Load())
	writeCounter(w, "swiperflix_playlist_items_total", "Videos returned across all playlist pages.", playlistItems.Load())
	writeCounter(w, "swiperflix_reactions_created_total", "Reaction events written to the ledger.", reactionsCreated.Load())
	writeCounter(w, "swiperflix_reactions_duplicate_total", "Reaction submissions absorbed as duplicates.", reactionsDuplicate.Load())
	writeCounter(w, "swiperflix_sync_runs_total", "Reconciliation runs attempted.", syncRuns.Load())
	writeCounter(w, "swiperflix_sync_failures_total", "Reconciliation runs that could not reach the listing.", syncFailures.Load())
	writeCounter(w, "swiperflix_sync_created_total", "Video records created by reconciliation.", syncCreated.Load())
	writeCounter(w, "swiperflix_sync_updated_total", "Video records updated by reconciliation.", syncUpdated.Load())
	writeCounter(w, "swiperflix_stream_redirects_total", "Stream redirects issued.", streamRedirects.Load())
}

func writeCounter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
