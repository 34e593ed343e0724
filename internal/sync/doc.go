// Package sync runs sync passes that copy finished Pocket recordings into
// a Notion database.
//
// A pass lists recordings created after the stored watermark, fetches each
// one, skips those the source is still processing, asks the destination in
// one batched query which of the rest already have a page, creates pages
// for the remainder and finally advances the watermark to the moment the
// listing started.
//
// Pages are keyed by a stable id derived from the recording id, and the
// batched existence check always runs before any create, so repeating a
// pass never produces a second page for the same recording.
//
// Failures are contained: a failed listing (or a failed existence check)
// aborts the pass, while a failure on one recording is recorded in the
// Result and the pass moves on.
//
// Example:
//
//	engine, err := sync.NewEngine(cfg, pocketClient, notionClient)
//	if err != nil {
//	    return err
//	}
//	result := engine.RunPass(ctx, sync.Options{DryRun: true})
//	fmt.Println(result)
package sync
