package core

import (
	"context"
	"log/slog"
	"time"
)

type EntityType string

const (
	EntityClient EntityType = "CLIENT"
	EntityPolicy EntityType = "POLICY"
	EntityOffer  EntityType = "OFFER"
)

func (e EntityType) Valid() bool {
	return e == EntityClient || e == EntityPolicy || e == EntityOffer
}

type ActivityType string

const (
	ActivityClientCreated      ActivityType = "CLIENT_CREATED"
	ActivityClientUpdated      ActivityType = "CLIENT_UPDATED"
	ActivityPolicyCreated      ActivityType = "POLICY_CREATED"
	ActivityPolicyUpdated      ActivityType = "POLICY_UPDATED"
	ActivityPolicyRenewed      ActivityType = "POLICY_RENEWED"
	ActivityPolicyCancelled    ActivityType = "POLICY_CANCELLED"
	ActivityPaymentUploaded    ActivityType = "PAYMENT_UPLOADED"
	ActivityPaymentValidated   ActivityType = "PAYMENT_VALIDATED"
	ActivityPaymentRejected    ActivityType = "PAYMENT_REJECTED"
	ActivityGDPRSigned         ActivityType = "GDPR_SIGNED"
	ActivityDocumentUploaded   ActivityType = "DOCUMENT_UPLOADED"
	ActivityDocumentDownloaded ActivityType = "DOCUMENT_DOWNLOADED"
	ActivityCommissionPaid     ActivityType = "COMMISSION_PAID"
	ActivityStatusChanged      ActivityType = "STATUS_CHANGED"
	ActivityOfferCreated       ActivityType = "OFFER_CREATED"
	ActivityOfferAccepted      ActivityType = "OFFER_ACCEPTED"
	ActivityOfferExpired       ActivityType = "OFFER_EXPIRED"
)

// ActivityLogEntry is one immutable line of an entity's audit timeline.
type ActivityLogEntry struct {
	ID           int64          `json:"id"`
	EntityType   EntityType     `json:"entity_type"`
	EntityID     int64          `json:"entity_id"`
	ActivityType ActivityType   `json:"activity_type"`
	Description  string         `json:"description"`
	PerformedBy  int64          `json:"performed_by"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ActivityRepo interface {
	Append(ctx context.Context, e *ActivityLogEntry) error
	// ListForEntity returns newest first.
	ListForEntity(ctx context.Context, entityType EntityType, entityID int64, limit int) ([]ActivityLogEntry, error)
}

// EventPublisher forwards recorded entries to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, e ActivityLogEntry) error
}

const activityWriteTimeout = 5 * time.Second

// ActivityRecorder writes audit entries on behalf of the lifecycle services.
// Failures are logged and never reach the caller.
type ActivityRecorder struct {
	repo  ActivityRepo
	pub   EventPublisher
	log   *slog.Logger
	clock func() time.Time
}

// NewActivityRecorder builds a recorder. pub may be nil.
func NewActivityRecorder(repo ActivityRepo, pub EventPublisher, log *slog.Logger) *ActivityRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &ActivityRecorder{repo: repo, pub: pub, log: log, clock: time.Now}
}

func (r *ActivityRecorder) Record(ctx context.Context, e ActivityLogEntry) {
	if r == nil || r.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityWriteTimeout)
	defer cancel()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.clock()
	}
	if err := r.repo.Append(ctx, &e); err != nil {
		r.log.Warn("activity log append failed",
			"entity_type", e.EntityType, "entity_id", e.EntityID,
			"activity_type", e.ActivityType, "error", err)
		return
	}
	if r.pub == nil {
		return
	}
	if err := r.pub.Publish(ctx, e); err != nil {
		r.log.Warn("activity event publish failed",
			"activity_id", e.ID, "activity_type", e.ActivityType, "error", err)
	}
}
