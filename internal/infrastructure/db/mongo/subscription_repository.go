package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

const collectionSubscriptions = "subscriptions"

type SubscriptionRepository struct {
	col *mongo.Collection
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)

func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{col: db.Collection(collectionSubscriptions)}
}

type subscriptionDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	StudentID string             `bson:"student_id"`
	CourseID  string             `bson:"course_id"`
	Score     float64            `bson:"score"`
}

func (d subscriptionDoc) toDomain() domain.Subscription {
	return domain.Subscription{
		ID:        d.ID.Hex(),
		StudentID: d.StudentID,
		CourseID:  d.CourseID,
		Score:     d.Score,
	}
}

// Create relies on the unique (student_id, course_id) index.
func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.Subscription) (*domain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := subscriptionDoc{
		ID:        primitive.NewObjectID(),
		StudentID: s.StudentID,
		CourseID:  s.CourseID,
		Score:     s.Score,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateSubscription
		}
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	created := doc.toDomain()
	return &created, nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *SubscriptionRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*domain.Subscription, error) {
	return r.findOne(ctx, bson.M{"student_id": studentID, "course_id": courseID})
}

func (r *SubscriptionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc subscriptionDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	s := doc.toDomain()
	return &s, nil
}

func (r *SubscriptionRepository) FindByStudent(ctx context.Context, studentID string) ([]domain.Subscription, error) {
	return r.find(ctx, bson.M{"student_id": studentID})
}

func (r *SubscriptionRepository) FindByCourse(ctx context.Context, courseID string) ([]domain.Subscription, error) {
	return r.find(ctx, bson.M{"course_id": courseID})
}

func (r *SubscriptionRepository) find(ctx context.Context, filter bson.M) ([]domain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find subscriptions: %w", err)
	}
	var docs []subscriptionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}

	out := make([]domain.Subscription, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *SubscriptionRepository) UpdateScore(ctx context.Context, id string, score float64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrSubscriptionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"score": score}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrSubscriptionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

// WatchByStudent re-reads the student's subscriptions on any change to the
// collection; deletes carry no document to filter on.
func (r *SubscriptionRepository) WatchByStudent(ctx context.Context, studentID string) (<-chan []domain.Subscription, error) {
	return watchSnapshots(ctx, r.col, func(ctx context.Context) ([]domain.Subscription, error) {
		return r.FindByStudent(ctx, studentID)
	})
}
