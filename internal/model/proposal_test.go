package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatusKnownLabels(t *testing.T) {
	for _, raw := range []string{"pending", "started", "processing", "approved", "completed", "rejected", "failed", "cancelled"} {
		assert.Equal(t, Status(raw), ParseStatus(raw))
	}
}

func TestParseStatusUnknownLabel(t *testing.T) {
	assert.Equal(t, StatusUnknown, ParseStatus("half-done"))
	assert.Equal(t, StatusUnknown, ParseStatus(""))
}

func TestTargetWorkflowIDFallback(t *testing.T) {
	p := ProcessEvent{ID: "prop-42"}
	assert.Equal(t, "workflow-prop-42", p.TargetWorkflowID())

	p.WorkflowID = "wf-9"
	assert.Equal(t, "wf-9", p.TargetWorkflowID())
}

func TestActionMapping(t *testing.T) {
	assert.Equal(t, "approve_signal", ActionApprove.SignalName())
	assert.Equal(t, "reject_signal", ActionReject.SignalName())
	assert.Equal(t, "completed", ActionApprove.TargetStatus())
	assert.Equal(t, "failed", ActionReject.TargetStatus())

	_, err := ParseAction("defer")
	assert.Error(t, err)
}

func TestFilterPatchApply(t *testing.T) {
	f := Filter{Status: "pending", Search: "invoice"}

	et := "connector.sync"
	f = FilterPatch{EventType: &et}.Apply(f)
	assert.Equal(t, Filter{Status: "pending", EventType: "connector.sync", Search: "invoice"}, f)

	empty := ""
	f = FilterPatch{Search: &empty}.Apply(f)
	assert.Equal(t, "", f.Search)
	assert.Equal(t, "pending", f.Status)
}
