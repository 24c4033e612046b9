// Package queue is a storage-agnostic task queue that carries the tenant
// binding from the code that enqueues work to the worker that runs it.
//
// Three components talk to storage through small repository interfaces:
//
//   - Enqueuer adds one-time tasks
//   - Scheduler turns Schedule definitions into periodic tasks
//   - Worker claims due tasks and dispatches them to a Handler
//
// # Tenant propagation
//
// Enqueue records the id of the tenant bound to the context (see
// pkg/tenant) on the task. EnqueueForTenant switches the binding to a given
// tenant for the call and restores the previous binding afterwards, which
// lets platform code dispatch work for many tenants without disturbing its
// own context.
//
// The worker executes every task as its own unit of work: it attaches a
// fresh tenant manager, loads the recorded tenant through the configured
// TenantLoader and binds it when it is still active. A tenant that was
// deleted or suspended since enqueue is logged and the task runs unbound.
// The binding is released when the handler returns, fails or panics.
//
// Tasks without a tenant run with an empty binding. Handlers that touch
// tenant-scoped data should be wrapped with RequireTenant:
//
//	worker.RegisterHandlers(
//		queue.RequireTenant(queue.NewTaskHandler(sendGivingReport)),
//	)
//
// Periodic tasks never carry a tenant. FanOut builds a periodic handler that
// dispatches a task per tenant:
//
//	worker.RegisterHandlers(queue.FanOut("weekly_digest", tenants.ListActive, enqueuer,
//		func(t *tenant.Tenant) any { return DigestPayload{} }))
//	scheduler.AddTask("weekly_digest", queue.WeeklyOn(time.Monday, 6, 0))
//
// # Error Handling
//
// Failed tasks are retried with a linear backoff until MaxRetries is reached
// and then moved to the dead letter queue. Tasks without a handler go to
// the dead letter queue immediately.
package queue
