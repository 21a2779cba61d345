package catalog

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkSearchKey(b *testing.B) {
	params := map[string]any{
		"statuses":  []any{"open", "in review"},
		"assignees": []any{"u1", "u2", "u3"},
		"page":      2,
		"order_by":  "due_date",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SearchKey("team1", params)
	}
}

func BenchmarkLookupTask(b *testing.B) {
	c := New(Config{}, nil, nil)
	ctx := context.Background()
	tasks := make([]Task, 1000)
	for i := range tasks {
		tasks[i] = Task{ID: fmt.Sprintf("T%d", i), Name: fmt.Sprintf("task %d", i)}
	}
	c.StoreListPage(ctx, ListPage{ListID: "L1", Tasks: tasks})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.LookupTask(ctx, fmt.Sprintf("T%d", i%1000))
	}
}
