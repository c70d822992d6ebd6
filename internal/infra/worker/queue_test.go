package worker

import (
	"testing"
	"time"

	"ai-interview-platform/internal/domain/model"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(&model.EvaluationJob{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got := <-q.Jobs()
		if got.ID != want {
			t.Errorf("dequeued %q, want %q", got.ID, want)
		}
	}
}

func TestQueueFullRejects(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	if err := q.Enqueue(&model.EvaluationJob{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(&model.EvaluationJob{ID: "b"}); err != ErrQueueFull {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}

func TestQueueEnqueueAfter(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	q.EnqueueAfter(&model.EvaluationJob{ID: "delayed"}, 10*time.Millisecond)

	select {
	case <-q.Jobs():
		t.Fatal("job arrived before the delay elapsed")
	case <-time.After(2 * time.Millisecond):
	}

	select {
	case job := <-q.Jobs():
		if job.ID != "delayed" {
			t.Errorf("dequeued %q, want %q", job.ID, "delayed")
		}
	case <-time.After(time.Second):
		t.Fatal("delayed job never arrived")
	}
}
