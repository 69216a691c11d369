package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/task"
	"Go_Shelf/internal/testutil"
	"Go_Shelf/model"
	"Go_Shelf/utils"
)

type recordingPublisher struct {
	mu      sync.Mutex
	tasks   int
	retries []time.Duration
	dlq     []dlqMessage
}

func (p *recordingPublisher) PublishTask(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks++
	return nil
}

func (p *recordingPublisher) PublishRetry(ctx context.Context, body []byte, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retries = append(p.retries, delay)
	return nil
}

func (p *recordingPublisher) PublishDLQ(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var msg dlqMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	p.dlq = append(p.dlq, msg)
	return nil
}

func body(t *testing.T, id uint64, attempt int) []byte {
	t.Helper()
	b, err := json.Marshal(task.CleanupMessage{TaskID: id, Attempt: attempt})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func schedule(t *testing.T, object string) *model.CleanupTask {
	t.Helper()
	ct, err := task.ScheduleCleanup(context.Background(), testutil.Bucket, object, model.CleanupReasonUploadRollback, nil)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return ct
}

func status(t *testing.T, env *testutil.Env, id uint64) model.CleanupTask {
	t.Helper()
	var ct model.CleanupTask
	if err := env.DB.First(&ct, id).Error; err != nil {
		t.Fatal(err)
	}
	return ct
}

func TestHandleMessageCompletesTask(t *testing.T) {
	env := testutil.Setup(t)
	defer task.SetPublisher(nil)()
	env.Store.Seed(testutil.Bucket, "orphan", []byte("x"))
	ct := schedule(t, "orphan")

	pub := &recordingPublisher{}
	if ack := handleMessage(context.Background(), pub, nil, body(t, ct.ID, 0)); !ack {
		t.Fatal("expect ack")
	}
	if got := status(t, env, ct.ID); got.Status != model.CleanupCompleted {
		t.Fatalf("expect completed, got %s", got.Status)
	}
	if len(pub.retries) != 0 || len(pub.dlq) != 0 {
		t.Fatalf("no retry expected: %+v", pub)
	}
}

func TestHandleMessageSchedulesRetry(t *testing.T) {
	env := testutil.Setup(t)
	defer task.SetPublisher(nil)()
	env.Store.FailRemove = errors.New("connection reset")
	ct := schedule(t, "orphan")

	pub := &recordingPublisher{}
	if ack := handleMessage(context.Background(), pub, nil, body(t, ct.ID, 0)); !ack {
		t.Fatal("expect ack after retry is scheduled")
	}
	got := status(t, env, ct.ID)
	if got.Status != model.CleanupRetrying || got.RetryCount != 1 || got.ErrorMsg != "connection reset" {
		t.Fatalf("unexpected state %+v", got)
	}
	if len(pub.retries) != 1 || pub.retries[0] != time.Second {
		t.Fatalf("expect one retry after 1s, got %v", pub.retries)
	}
}

func TestHandleMessageGoesDeadAfterMaxRetries(t *testing.T) {
	env := testutil.Setup(t)
	defer task.SetPublisher(nil)()
	env.Store.FailRemove = errors.New("access denied")
	config.AppConfig.AlertEmail = "ops@example.com"
	ct := schedule(t, "orphan")

	var alerts []utils.DeadTaskAlert
	prev := sendAlert
	sendAlert = func(to string, a utils.DeadTaskAlert) error {
		alerts = append(alerts, a)
		return nil
	}
	defer func() { sendAlert = prev }()

	pub := &recordingPublisher{}
	// attempt 3 is the last allowed retry in the test config
	env.DB.Model(&model.CleanupTask{}).Where("id = ?", ct.ID).UpdateColumn("status", model.CleanupRetrying)
	if ack := handleMessage(context.Background(), pub, nil, body(t, ct.ID, 3)); !ack {
		t.Fatal("expect ack")
	}
	got := status(t, env, ct.ID)
	if got.Status != model.CleanupDead || got.FinishedAt == nil {
		t.Fatalf("expect dead, got %+v", got)
	}
	if len(pub.dlq) != 1 || pub.dlq[0].TaskID != ct.ID || pub.dlq[0].Error != "access denied" {
		t.Fatalf("unexpected dlq %+v", pub.dlq)
	}
	if len(alerts) != 1 || alerts[0].ObjectName != "orphan" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}

func TestHandleMessageAcksGarbageAndMissingTasks(t *testing.T) {
	testutil.Setup(t)
	pub := &recordingPublisher{}
	if !handleMessage(context.Background(), pub, nil, []byte("{not json")) {
		t.Fatal("invalid payload should be acked and dropped")
	}
	if !handleMessage(context.Background(), pub, nil, body(t, 9999, 0)) {
		t.Fatal("missing task should be acked")
	}
	if len(pub.retries) != 0 || len(pub.dlq) != 0 {
		t.Fatalf("missing task must not be retried: %+v", pub)
	}
}

func TestSweepOnceWithoutRedis(t *testing.T) {
	env := testutil.Setup(t)
	defer task.SetPublisher(nil)()
	ct := schedule(t, "lost")
	env.DB.Model(&model.CleanupTask{}).Where("id = ?", ct.ID).UpdateColumn("updated_at", time.Now().Add(-time.Hour))

	pub := &recordingPublisher{}
	defer task.SetPublisher(pub)()
	if n := sweepOnce(context.Background(), time.Minute, time.Minute); n != 1 {
		t.Fatalf("expect 1 requeued, got %d", n)
	}
	if pub.tasks != 1 {
		t.Fatalf("expect one publish, got %d", pub.tasks)
	}
}

func TestPickRetryDelay(t *testing.T) {
	delays := []time.Duration{time.Second, 5 * time.Second, time.Minute}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 5 * time.Second},
		{3, time.Minute},
		{9, time.Minute},
	}
	for _, c := range cases {
		if got := pickRetryDelay(c.attempt, delays); got != c.want {
			t.Fatalf("attempt %d: got %v want %v", c.attempt, got, c.want)
		}
	}
	if got := pickRetryDelay(1, nil); got != 0 {
		t.Fatalf("empty delays should give 0, got %v", got)
	}
}

func TestNewLimiter(t *testing.T) {
	if l := newLimiter(0, 0); l.Burst() != 1 {
		t.Fatalf("expect burst clamp to 1, got %d", l.Burst())
	}
	if l := newLimiter(5, 3); float64(l.Limit()) != 5 || l.Burst() != 3 {
		t.Fatalf("unexpected limiter %v/%d", l.Limit(), l.Burst())
	}
}
