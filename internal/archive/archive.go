// Package archive exports terminal task rows to cold storage in GCS as
// JSON blobs, one object per task. Adapted from internal/storage/gcs's
// TodoList store: same client/bucket shape, same existence-check idiom via
// errors.Is(err, storage.ErrObjectNotExist), same bounded-concurrency
// parallel-fetch pattern, with domain.Task swapping in for core.TodoList
// and Put/Get/List swapping in for CreateList/GetList/ListLists.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/arashn/taskqueue/internal/domain"
)

// maxConcurrency bounds parallel object fetches during List, same value
// the teacher's gcs store used for ListLists.
const maxConcurrency = 20

// Archiver writes and reads archived tasks in a GCS bucket. It is not a
// store.Store — only terminal rows ever get archived, and archived rows
// are never claimed again.
type Archiver struct {
	client *storage.Client
	bucket string
}

// New creates an Archiver. It assumes the client is authenticated (e.g.
// via GOOGLE_APPLICATION_CREDENTIALS), same as the teacher's gcs.NewStore.
func New(ctx context.Context, bucketName string) (*Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &Archiver{client: client, bucket: bucketName}, nil
}

func (a *Archiver) objectName(id string) string {
	return fmt.Sprintf("%s.json", id)
}

// Put writes task as a JSON object, keyed by its id. Overwrites any
// previous archive of the same task (a task is archived once it reaches a
// terminal state, so a second Put only happens if the archiver's cursor is
// replayed).
func (a *Archiver) Put(ctx context.Context, task *domain.Task) error {
	name := a.objectName(task.ID)
	obj := a.client.Bucket(a.bucket).Object(name)

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	return w.Close()
}

// Get retrieves one archived task by id.
func (a *Archiver) Get(ctx context.Context, id string) (*domain.Task, error) {
	name := a.objectName(id)
	obj := a.client.Bucket(a.bucket).Object(name)

	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	defer r.Close()

	var task domain.Task
	if err := json.NewDecoder(r).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &task, nil
}

// List scans the bucket for archived tasks and loads them in parallel,
// bounded at maxConcurrency in-flight reads.
func (a *Archiver) List(ctx context.Context) ([]*domain.Task, error) {
	it := a.client.Bucket(a.bucket).Objects(ctx, nil)

	var objectNames []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			objectNames = append(objectNames, attrs.Name)
		}
	}

	var (
		mu    sync.Mutex
		tasks []*domain.Task
		wg    sync.WaitGroup
	)

	semaphore := make(chan struct{}, maxConcurrency)

	for _, name := range objectNames {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(objectName string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			obj := a.client.Bucket(a.bucket).Object(objectName)
			r, err := obj.NewReader(ctx)
			if err != nil {
				return
			}
			defer r.Close()

			data, err := io.ReadAll(r)
			if err != nil {
				return
			}

			var task domain.Task
			if err := json.Unmarshal(data, &task); err == nil {
				mu.Lock()
				tasks = append(tasks, &task)
				mu.Unlock()
			}
		}(name)
	}

	wg.Wait()
	return tasks, nil
}

// Close releases the underlying GCS client.
func (a *Archiver) Close() error {
	return a.client.Close()
}
