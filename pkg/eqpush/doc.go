// Package eqpush follows EverQuest log files and sends push notifications
// when configured triggers match.
//
// This package allows you to:
//   - Tail the active eqlog_<Character>_<server>.txt file line by line
//   - Track AFK, idle and camping state from the log
//   - Match lines against named regular-expression triggers
//   - Gate and deliver notifications through a [Notifier]
//
// # Basic Usage
//
// To stream new log lines:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	lines, errs, err := eqpush.WatchWithOptions(ctx,
//	    eqpush.WithLogDir(`C:\Users\Public\Daybreak Game Company\Installed Games\EverQuest\Logs`),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for {
//	    select {
//	    case line, ok := <-lines:
//	        if !ok {
//	            return
//	        }
//	        fmt.Printf("%s: %s\n", line.Character, line.Text)
//	    case err, ok := <-errs:
//	        if !ok {
//	            return
//	        }
//	        log.Printf("error: %v", err)
//	    }
//	}
//
// To run the whole pipeline:
//
//	w, err := eqpush.NewWatcherWithOptions()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	engine := eqpush.NewEngine(w, config.Static(config.Default()), notifier)
//	if err := engine.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Notification Policy
//
// A matched trigger or an expired timer is pushed when, in order:
//   - push_enabled is set (and timer_expiry, for timers)
//   - the player is away if afk_only (or timer_expiry_afk_only) is set,
//     subject to camp_policy
//   - the match's "source" group is not one of the player's own names
//   - a Prowl API key is configured
//
// Delivery is attempted at most once. Failures come back in [Result]
// and are logged.
//
// # Errors
//
// The watcher reports problems on its error channel without stopping:
// [*FileReadError] after a failed read (the cursor moves to end of file),
// [*ParseError] when the character name cannot be read from a file name,
// and [*WatchError] for discovery and file-event failures.
//
// # Platform Support
//
// Log directory auto-detection and the idle probe only work on Windows.
// Elsewhere set the directory explicitly or with EQPUSH_LOGDIR.
package eqpush
