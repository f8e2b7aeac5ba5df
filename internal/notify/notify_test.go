package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/skyreport/internal/location"
	"github.com/breatheroute/skyreport/internal/notify"
	"github.com/breatheroute/skyreport/internal/report"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"y", true},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		c := notify.NewPromptConfirmer(strings.NewReader(tt.input), &out)

		got, err := c.Confirm(context.Background(), "Send report to device?")
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Send report to device? [y/N] ", out.String())
	}
}

func TestPromptConfirmer_Cancelled(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := notify.NewPromptConfirmer(reader, io.Discard)
	_, err := c.Confirm(ctx, "Send?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned read still drains a late answer without blocking the writer.
	done := make(chan error, 1)
	go func() {
		_, werr := writer.Write([]byte("y\n"))
		done <- werr
	}()
	select {
	case werr := <-done:
		assert.NoError(t, werr)
	case <-time.After(time.Second):
		t.Fatal("late answer was never read")
	}
}

func TestStaticConfirmer(t *testing.T) {
	ok, err := notify.StaticConfirmer(true).Confirm(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = notify.StaticConfirmer(false).Confirm(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakePublisher struct {
	messages []*pubsub.Message
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, msg *pubsub.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, msg)
	return "msg-1", nil
}

func testReport() *report.Report {
	return &report.Report{
		ID:          uuid.MustParse("6f1c2b8e-1a4d-4c55-9a57-3b2f0e7d9c11"),
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Location:    &location.Location{City: "Amsterdam"},
		Annotation:  "Air Quality: 42 (Good)",
	}
}

func TestPubSubNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := notify.NewNotifier(pub, "report-delivery", zerolog.Nop())

	require.NoError(t, n.Notify(context.Background(), testReport(), "/tmp/out/today_uv.html"))
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, "6f1c2b8e-1a4d-4c55-9a57-3b2f0e7d9c11", msg.Attributes["run_id"])

	var decoded notify.DeliveryMessage
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "today_uv.html", decoded.Artifact)
	assert.Equal(t, "Amsterdam", decoded.City)
	assert.Equal(t, "Air Quality: 42 (Good)", decoded.Annotation)
	assert.True(t, decoded.GeneratedAt.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestPubSubNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("topic not found")}
	n := notify.NewNotifier(pub, "report-delivery", zerolog.Nop())

	err := n.Notify(context.Background(), testReport(), "today_uv.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report-delivery")
}

func TestPubSubNotifier_NoArtifact(t *testing.T) {
	pub := &fakePublisher{}
	n := notify.NewNotifier(pub, "report-delivery", zerolog.Nop())

	assert.ErrorIs(t, n.Notify(context.Background(), testReport(), ""), notify.ErrNoArtifact)
	assert.Empty(t, pub.messages)
	assert.NoError(t, n.Close())
}
