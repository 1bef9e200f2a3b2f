package main

import (
	"context"
	"time"
)

// Push tokens from uninstalled apps accumulate forever; prune anything not
// refreshed in 90 days.
const stalePushTokenAge = 90 * 24 * time.Hour

func (app *application) pruneStalePushTokensDaily() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		prune := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := app.store.PushTokens.PruneStaleTokens(ctx, stalePushTokenAge); err != nil {
				app.logger.Errorf("Error pruning stale push tokens: %v", err)
			} else {
				app.logger.Infof("Pruned stale push tokens at %s", time.Now().Format(time.RFC1123))
			}
		}

		// Run once immediately
		prune()

		for range ticker.C {
			prune()
		}
	}()
}
