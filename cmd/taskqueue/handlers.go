package main

import (
	"context"
	"fmt"
	"time"

	"github.com/arashn/taskqueue/internal/queue"
	"github.com/arashn/taskqueue/internal/registry"
)

// registerHandlers wires the process's task handlers into q. spec.md §9's
// second Open Question notes that the source populates its registry by
// importing user modules at worker startup; a static Go binary needs a
// different plug-in strategy — explicit registration in main, which is
// what this does. A real deployment would replace this function with one
// generated or hand-written per task-module package; --task-module is
// accepted on the CLI for parity with spec.md §6 but is otherwise
// informational here, since handlers are compiled in rather than loaded
// dynamically.
func registerHandlers(q *queue.Queue) error {
	addSchema := registry.Schema{
		Version: "1",
		Params: []registry.Param{
			{Name: "a", Kind: registry.KindInt, Required: true},
			{Name: "b", Kind: registry.KindInt, Required: true},
		},
	}
	if err := q.Register("add", addHandler, addSchema); err != nil {
		return err
	}

	helloSchema := registry.Schema{
		Version: "1",
		Params: []registry.Param{
			{Name: "name", Kind: registry.KindString, Required: false, Default: "world"},
		},
	}
	if err := q.Register("hello", helloHandler, helloSchema); err != nil {
		return err
	}

	sleepSchema := registry.Schema{
		Version: "1",
		Params: []registry.Param{
			{Name: "seconds", Kind: registry.KindFloat, Required: false, Default: 1.0},
		},
	}
	if err := q.Register("sleep", sleepHandler, sleepSchema); err != nil {
		return err
	}

	return nil
}

func addHandler(_ context.Context, kwargs map[string]any) (any, error) {
	a, _ := kwargs["a"].(int)
	b, _ := kwargs["b"].(int)
	return a + b, nil
}

func helloHandler(_ context.Context, kwargs map[string]any) (any, error) {
	name, _ := kwargs["name"].(string)
	return fmt.Sprintf("hello, %s", name), nil
}

func sleepHandler(ctx context.Context, kwargs map[string]any) (any, error) {
	seconds, _ := kwargs["seconds"].(float64)
	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return "slept", nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
