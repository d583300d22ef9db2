// internal/notification/consumer_test.go
package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	recorded []Payload
	err      error
}

func (f *fakeService) Record(ctx context.Context, payload Payload) (*Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recorded = append(f.recorded, payload)
	return &Notification{ID: uuid.New(), UserID: payload.UserID}, nil
}

func (f *fakeService) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error) {
	return nil, nil
}

func (f *fakeService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func TestConsumeRecordsPayload(t *testing.T) {
	svc := &fakeService{}
	handle := Consume(svc)

	userID := uuid.New()
	err := handle(context.Background(), []byte(`{"user_id":"`+userID.String()+`","title":"Donation accepted","message":"claimed","severity":"success"}`))
	require.NoError(t, err)

	require.Len(t, svc.recorded, 1)
	assert.Equal(t, userID, svc.recorded[0].UserID)
	assert.Equal(t, "Donation accepted", svc.recorded[0].Title)
}

func TestConsumeDropsMalformedRecords(t *testing.T) {
	svc := &fakeService{}
	handle := Consume(svc)

	// Undecodable records must not be retried forever.
	err := handle(context.Background(), []byte(`not json`))
	assert.NoError(t, err)
	assert.Empty(t, svc.recorded)
}

func TestConsumeSurfacesStorageErrors(t *testing.T) {
	svc := &fakeService{err: errors.New("db down")}
	handle := Consume(svc)

	err := handle(context.Background(), []byte(`{"user_id":"`+uuid.New().String()+`"}`))
	assert.Error(t, err, "storage failures leave the offset unmarked for redelivery")
}
