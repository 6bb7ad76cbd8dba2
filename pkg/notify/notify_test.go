package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/roundtable/internal/engine/model"
)

func TestNewService_DisabledWithoutTokenOrChannel(t *testing.T) {
	assert.Nil(t, NewService(ServiceConfig{}))
	assert.Nil(t, NewService(ServiceConfig{Token: "xoxb-test"}))
	assert.Nil(t, NewService(ServiceConfig{Channel: "#roundtable"}))
}

func TestNewService_EnabledWithBoth(t *testing.T) {
	svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: "#roundtable"})
	assert.NotNil(t, svc)
}

func TestNotifyFinalized_NilServiceIsANoOp(t *testing.T) {
	var svc *Service
	issue := model.NewIssue("issue-1", "Pick a path", "what should we do?", "", []string{"agent-a"})

	assert.NotPanics(t, func() {
		svc.NotifyFinalized(context.Background(), issue, 0, 5)
	})
}
