package store

// Key names shared with other Resque-compatible tools. They are relative to
// the store namespace (default "resque").

// QueuesKey is the set of every queue name that has ever been pushed to.
const QueuesKey = "queues"

// FailedKey is the list of failure records.
const FailedKey = "failed"

// WorkersKey is the set of registered worker identities.
const WorkersKey = "workers"

// QueueKey returns the list key for a queue: queue:{name}
func QueueKey(name string) string { return "queue:" + name }

// StatusKey returns the status key for a monitored job: job:{id}:status
func StatusKey(id string) string { return "job:" + id + ":status" }

// WorkerKey returns the processing marker key for a worker: worker:{id}
func WorkerKey(id string) string { return "worker:" + id }

// WorkerStartedKey returns the start timestamp key for a worker.
func WorkerStartedKey(id string) string { return "worker:" + id + ":started" }

// StatKey returns the counter key for a stat: stat:{name}
func StatKey(name string) string { return "stat:" + name }
