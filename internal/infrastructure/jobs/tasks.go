// Package jobs runs background work on asynq: the periodic ledger reconciliation.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault = "default"

	// TaskLedgerReconcile checks every product's stock against its movements.
	TaskLedgerReconcile = "ledger:reconcile"
)

// ReconcilePayload is the body of a reconcile task.
type ReconcilePayload struct {
	Trigger string `json:"trigger"`
}

// NewReconcileTask builds a reconcile task.
func NewReconcileTask(trigger string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{Trigger: trigger})
	if err != nil {
		return nil, fmt.Errorf("marshal reconcile payload: %w", err)
	}
	return asynq.NewTask(TaskLedgerReconcile, payload, asynq.Queue(QueueDefault)), nil
}
