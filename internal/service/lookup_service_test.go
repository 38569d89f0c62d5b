package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLookupService_FallsBackToDatabaseWithoutCache(t *testing.T) {
	lookups := &fakeLookupRepo{
		statuses: map[int]string{1: "New", 2: "In Progress"},
		stages:   map[int]string{1: "Design"},
	}
	svc := NewLookupService(lookups, nil, 0, zap.NewNop())

	statuses, err := svc.ListDefectStatuses(context.Background())
	require.NoError(t, err)
	assert.Len(t, statuses, 2)

	stages, err := svc.ListProjectStages(context.Background())
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, "Design", stages[0].Name)
}
