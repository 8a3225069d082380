package camunda

import (
	"encoding/json"
	"testing"

	apperrors "financing-workers/internal/common/errors"
	"financing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	AdminID       string `json:"adminId" validate:"required"`
}

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       1,
		Type:      "review-application",
		Retries:   3,
		Variables: string(variablesJSON),
	}}
}

func sampleActivity() *registry.Activity {
	return &registry.Activity{
		ID:       "review-application",
		TaskType: "review-application",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"applicationId"},
			"properties": map[string]interface{}{
				"applicationId": map[string]interface{}{"type": "string"},
			},
		},
	}
}

func TestDecodeVariables(t *testing.T) {
	var in sampleInput
	err := DecodeVariables(createMockJob(map[string]interface{}{
		"applicationId": "app-1",
		"adminId":       "adm-1",
	}), sampleActivity(), &in)
	require.NoError(t, err)
	assert.Equal(t, "app-1", in.ApplicationID)
	assert.Equal(t, "adm-1", in.AdminID)
}

func TestDecodeVariables_Failures(t *testing.T) {
	tests := []struct {
		name     string
		job      entities.Job
		activity *registry.Activity
		contains string
	}{
		{
			name:     "schema violation",
			job:      createMockJob(map[string]interface{}{"applicationId": 42, "adminId": "adm-1"}),
			activity: sampleActivity(),
			contains: "input schema",
		},
		{
			name:     "struct tag",
			job:      createMockJob(map[string]interface{}{"applicationId": "app-1"}),
			activity: sampleActivity(),
			contains: "Input validation failed",
		},
		{
			name:     "not json",
			job:      entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: "{"}},
			contains: "parse input",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in sampleInput
			err := DecodeVariables(tt.job, tt.activity, &in)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
