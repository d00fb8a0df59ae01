// Package xargs feeds input lines to concurrently running instances of a
// single command and writes their outputs in the input order.
//
// Data flow:
//
//	input --Lines--> Splitter --Job--> parallel.Ordered --Result--> Format --> output
//	                                     |  one goroutine per Job
//	                                     |  runner.Run(Command, Job.Payload)
//
// Invariants:
//   - output record i corresponds to input line i, a completed Result waits
//     in the queue until all earlier Results are written
//   - at most Config.Parallel processes are started and not yet written
//   - only Engine.Run writes the output
//   - a failed process aborts the run unless Config.SuppressFail is set, in
//     which case an empty record is written in its place
package xargs
