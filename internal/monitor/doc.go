// Package monitor runs the watchdog loop.
//
// Loop.Run keeps two clocks on one goroutine:
//   - the threshold check, every CheckInterval: sample, print a status line,
//     evaluate against the thresholds and send one WARNING per metric that
//     has just crossed;
//   - the daily report, at DailyReportTime local time: sample, send an INFO
//     summary and clear every alert flag.
//
// A report is also sent once at startup so the alert state begins from a
// known baseline. Delivery failures are logged and counted but never stop
// the loop. Cancelling the context stops it cleanly without further
// notifications; a startup sampling failure or a panic stops it after one
// best-effort WARNING.
package monitor
