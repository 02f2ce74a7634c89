package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_KeysByCaseNumber(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	e := New(CaseCreated, "CASE-48213")
	e.PatientNumber = "PAT-10442"
	e.InjuryCount = 2
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "CASE-48213", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "case.created", string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, "PAT-10442", decoded.PatientNumber)
	assert.Equal(t, 2, decoded.InjuryCount)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := &KafkaPublisher{w: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), New(CaseStatusChanged, "CASE-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "CASE-1")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, (&KafkaPublisher{w: w}).Close())
	assert.True(t, w.closed)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	e := New(CaseStatusChanged, "CASE-20001")
	e.Status = "Stable"
	require.NoError(t, p.Publish(context.Background(), e))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "case.status_changed", entry["event_type"])
	assert.Equal(t, "CASE-20001", entry["case_number"])
	assert.Equal(t, "Stable", entry["status"])
	assert.NoError(t, p.Close())
}

func TestNew(t *testing.T) {
	a := New(CaseCreated, "CASE-1")
	b := New(CaseCreated, "CASE-1")
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestFanout_PublishesToAll(t *testing.T) {
	first, second := &fakeWriter{err: errors.New("broker down")}, &fakeWriter{}
	f := Fanout{&KafkaPublisher{w: first}, &KafkaPublisher{w: second}}

	err := f.Publish(context.Background(), New(CaseCreated, "CASE-30001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, second.msgs, 1)

	require.NoError(t, f.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}
