package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jbsn-app/file-service/internal/models"
)

const (
	subjectFileUploaded = "files.uploaded"
	subjectFileDeleted  = "files.deleted"
)

// Publisher emits file lifecycle events to NATS. A nil Publisher is
// valid and publishes nothing, so the service runs without a broker.
type Publisher struct {
	nc *nats.Conn
}

// Connect establishes the NATS connection, retrying forever on drops.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to NATS at", url)
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

// FileUploaded announces a newly cataloged upload. Publish failures are
// logged and never fail the request that triggered them.
func (p *Publisher) FileUploaded(rec models.FileRecord) {
	p.publish(subjectFileUploaded, map[string]interface{}{
		"action":      "uploaded",
		"file_id":     rec.ID,
		"filename":    rec.StoredName,
		"file_type":   rec.FileType,
		"file_size":   rec.FileSize,
		"upload_date": rec.UploadDate,
	})
}

// FileDeleted announces a removed upload.
func (p *Publisher) FileDeleted(id int64, storedName string) {
	p.publish(subjectFileDeleted, map[string]interface{}{
		"action":   "deleted",
		"file_id":  id,
		"filename": storedName,
	})
}

func (p *Publisher) publish(subject string, payload map[string]interface{}) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("warning: failed to encode %s event: %v", subject, err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Printf("warning: failed to publish %s event: %v", subject, err)
	}
}
