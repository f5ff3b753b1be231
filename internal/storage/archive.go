package storage

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/google/uuid"
)

// WebhookArchive writes verified webhook bodies under
// <provider>/<yyyy>/<mm>/<dd>/<uuid>.json.
type WebhookArchive struct {
	store Storage
	now   func() time.Time
}

func NewWebhookArchive(s Storage) *WebhookArchive {
	return &WebhookArchive{store: s, now: time.Now}
}

func (a *WebhookArchive) Archive(ctx context.Context, provider string, body []byte) (string, error) {
	key := path.Join(provider, a.now().UTC().Format("2006/01/02"), uuid.NewString()+".json")
	res, err := a.store.Put(ctx, bytes.NewReader(body), PutInput{
		Key:         key,
		ContentType: "application/json",
		Size:        int64(len(body)),
	})
	if err != nil {
		return "", err
	}
	return res.Key, nil
}
