// Package temporal provides Temporal client integration for the book
// content service.
//
// It handles client initialization, worker lifecycle and the shared input
// types of the reading-list prewarm workflow. Workflow and activity
// implementations live in the workflows and activities subpackages.
//
// # Client Setup
//
//	c, err := temporal.NewClient(temporal.ClientConfig{
//	    HostPort:  "localhost:7233",
//	    Namespace: "book-content",
//	    TaskQueue: "book-content-prewarm",
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	prewarm := temporal.NewPrewarmClient(c, cfg)
//	defer prewarm.Close()
//
// # Starting a Prewarm
//
//	workflowID, err := prewarm.StartPrewarm(ctx, domain.ReadingList{
//	    ID:    "physics-101",
//	    Books: []domain.BookQuery{{Title: "Introduction to Physics"}},
//	})
//
// A second start for a list whose prewarm is still running fails with an
// error for which IsWorkflowAlreadyStarted reports true.
//
// # Worker Setup
//
//	mgr, err := temporal.NewWorkerManager(c, temporal.DefaultWorkerConfig(taskQueue, 4))
//	if err != nil {
//	    return err
//	}
//	mgr.RegisterWorkflow(workflows.PrewarmReadingListWorkflow, temporal.PrewarmWorkflowName)
//	mgr.RegisterActivities(activities.NewPrewarmActivities(service, publisher, metrics))
//	return mgr.Run(ctx)
package temporal
