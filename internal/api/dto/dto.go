package dto

import "encoding/json"

type EnqueueRequest struct {
	Class   string `json:"class" binding:"required"`
	Args    []any  `json:"args"`
	Monitor bool   `json:"monitor"`
}

type EnqueueResponse struct {
	Queue string `json:"queue"`
	Class string `json:"class"`
	Args  []any  `json:"args"`
	JobID string `json:"job_id,omitempty"`
}

type QueueDTO struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type ListQueuesResponse struct {
	Queues []QueueDTO `json:"queues"`
}

type PeekQueueRequest struct {
	Start int64 `form:"start"`
	Count int64 `form:"count"`
}

type QueueDetailResponse struct {
	Name string            `json:"name"`
	Size int64             `json:"size"`
	Jobs []json.RawMessage `json:"jobs"`
}

type JobStatusResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Started int64  `json:"started,omitempty"`
	Updated int64  `json:"updated"`
}

type ListFailuresRequest struct {
	PageSize int64  `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type FailureDTO struct {
	FailedAt  string          `json:"failed_at"`
	Payload   json.RawMessage `json:"payload"`
	Exception string          `json:"exception"`
	Error     string          `json:"error"`
	Backtrace []string        `json:"backtrace"`
	Worker    string          `json:"worker"`
	Queue     string          `json:"queue"`
}

type ListFailuresResponse struct {
	Failures   []FailureDTO `json:"failures"`
	Total      int64        `json:"total"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type ProcessingDTO struct {
	Queue   string          `json:"queue"`
	RunAt   string          `json:"run_at"`
	Payload json.RawMessage `json:"payload"`
}

type WorkerDTO struct {
	ID         string         `json:"id"`
	Started    string         `json:"started,omitempty"`
	Processed  int64          `json:"processed"`
	Failed     int64          `json:"failed"`
	Processing *ProcessingDTO `json:"processing,omitempty"`
}

type ListWorkersResponse struct {
	Workers []WorkerDTO `json:"workers"`
}

type StatsResponse struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Pending   int64 `json:"pending"`
	Queues    int   `json:"queues"`
	Workers   int   `json:"workers"`
	Failures  int64 `json:"failures"`
}
