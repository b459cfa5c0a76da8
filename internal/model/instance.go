package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekisa-team/sam3lab/internal/backend"
	"github.com/ekisa-team/sam3lab/internal/checkpoint"
)

// Status is the current loading status of a model instance.
type Status string

const (
	// StatusUnloaded indicates that the checkpoint has not been loaded yet.
	StatusUnloaded Status = "unloaded"

	// StatusLoading indicates that the checkpoint is being fetched or loaded.
	StatusLoading Status = "loading"

	// StatusLoaded indicates that the processor is ready for inference.
	StatusLoaded Status = "loaded"

	// StatusFailed indicates that the build failed.
	StatusFailed Status = "failed"
)

// Instance is a processor built from one checkpoint.
type Instance struct {
	LoadedAt  *time.Time        `json:"loaded_at,omitempty"`
	Ref       checkpoint.Ref    `json:"-"`
	Processor backend.Processor `json:"-"`
	ID        string            `json:"id"`
	Path      string            `json:"path"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
}

// NewInstance creates an unloaded instance for ref.
func NewInstance(ref checkpoint.Ref) *Instance {
	return &Instance{
		ID:     uuid.NewString(),
		Ref:    ref,
		Status: StatusUnloaded,
	}
}

// SetStatus sets the status of the instance.
func (i *Instance) SetStatus(status Status) {
	i.Status = status
	if status == StatusLoaded {
		now := time.Now()
		i.LoadedAt = &now
	}
}

// SetError marks the instance failed with err.
func (i *Instance) SetError(err error) {
	i.Error = err.Error()
	i.SetStatus(StatusFailed)
}

// Close releases the processor, if any.
func (i *Instance) Close() error {
	if i.Processor == nil {
		return nil
	}
	err := i.Processor.Close()
	i.Processor = nil
	i.SetStatus(StatusUnloaded)
	return err
}
