package ordering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

func TestPlan(t *testing.T) {
	p := uuid.New()

	tests := []struct {
		name string
		from Position
		to   Position
		want []repository.OrderShift
	}{
		{
			name: "same slot",
			from: Position{model.StatusOpen, 2},
			to:   Position{model.StatusOpen, 2},
			want: nil,
		},
		{
			name: "down the column",
			from: Position{model.StatusOpen, 1},
			to:   Position{model.StatusOpen, 3},
			want: []repository.OrderShift{{ProjectID: p, Status: model.StatusOpen, From: 2, To: 3, Delta: -1}},
		},
		{
			name: "up the column",
			from: Position{model.StatusOpen, 3},
			to:   Position{model.StatusOpen, 1},
			want: []repository.OrderShift{{ProjectID: p, Status: model.StatusOpen, From: 1, To: 2, Delta: 1}},
		},
		{
			name: "across columns",
			from: Position{model.StatusOpen, 1},
			to:   Position{model.StatusDone, 0},
			want: []repository.OrderShift{
				{ProjectID: p, Status: model.StatusOpen, From: 2, To: -1, Delta: -1},
				{ProjectID: p, Status: model.StatusDone, From: 0, To: -1, Delta: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(p, tt.from, tt.to))
		})
	}
}

func TestClamp(t *testing.T) {
	n := func(i int) *int { return &i }

	assert.Equal(t, 4, clamp(nil, 4))
	assert.Equal(t, 4, clamp(n(9), 4))
	assert.Equal(t, 0, clamp(n(-3), 4))
	assert.Equal(t, 2, clamp(n(2), 4))
	assert.Equal(t, 0, clamp(nil, 0))
}
