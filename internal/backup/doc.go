// Package backup runs the upload phase of a backup.
//
// The Orchestrator consumes a lazy sequence of BackupTargets, uploads each one
// through an uploader.Uploader on a bounded pool of workers and collects one
// UploadOutcome per target. Each file moves through an explicit retry state
// machine:
//
//	Attempting(n) --success--> Done
//	Attempting(n) --failure, n < max--> Backoff(n) --> Attempting(n+1)
//	Attempting(n) --failure, n == max--> Failed
//
// Failed files are never dropped; their outcome carries a nil Result so that
// the sink can record the gap. Cancelling the run context stops dispatching,
// aborts pending backoff waits and marks in-flight files as interrupted.
//
// Example usage:
//
//	orch, err := backup.NewOrchestrator(up, logger, backup.Options{
//		Region: "us-east-1",
//		Vault:  "photos",
//	})
//	if err != nil {
//		return err
//	}
//	outcomes, err := orch.Run(ctx, backup.Targets(strategy.FindFiles(ctx, source), root))
package backup
