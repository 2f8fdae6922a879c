package enums

import "fmt"

// WorkflowStage is the per-user purchase workflow state.
type WorkflowStage string

const (
	StageNoCart          WorkflowStage = "no_cart"
	StageCartOpen        WorkflowStage = "cart_open"
	StageAwaitingReceipt WorkflowStage = "awaiting_receipt"
	StagePendingApproval WorkflowStage = "pending_approval"
	StageApproved        WorkflowStage = "approved"
	StageCompleted       WorkflowStage = "completed"
	StageTerminated      WorkflowStage = "terminated"
)

var validWorkflowStages = []WorkflowStage{
	StageNoCart,
	StageCartOpen,
	StageAwaitingReceipt,
	StagePendingApproval,
	StageApproved,
	StageCompleted,
	StageTerminated,
}

// IsValid reports whether the value matches the canonical stage enum.
func (w WorkflowStage) IsValid() bool {
	for _, candidate := range validWorkflowStages {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave the stage.
func (w WorkflowStage) IsTerminal() bool {
	return w == StageCompleted || w == StageTerminated
}

// ParseWorkflowStage converts the raw string to WorkflowStage.
func ParseWorkflowStage(value string) (WorkflowStage, error) {
	for _, candidate := range validWorkflowStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workflow stage %q", value)
}
