package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

const collectionCourses = "courses"

type CourseRepository struct {
	client *mongo.Client
	col    *mongo.Collection
	subs   *mongo.Collection
}

var _ ports.CourseRepository = (*CourseRepository)(nil)

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{
		client: db.Client(),
		col:    db.Collection(collectionCourses),
		subs:   db.Collection(collectionSubscriptions),
	}
}

type courseDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	ECTS      float64            `bson:"ects"`
	Level     string             `bson:"level"`
	TeacherID string             `bson:"teacher_id"`
}

func (d courseDoc) toDomain() domain.Course {
	return domain.Course{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		ECTS:      d.ECTS,
		Level:     domain.Level(d.Level),
		TeacherID: d.TeacherID,
	}
}

func (r *CourseRepository) Create(ctx context.Context, c *domain.Course) (*domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := courseDoc{
		ID:        primitive.NewObjectID(),
		Name:      c.Name,
		ECTS:      c.ECTS,
		Level:     string(c.Level),
		TeacherID: c.TeacherID,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}
	created := doc.toDomain()
	return &created, nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*domain.Course, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCourseNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc courseDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	c := doc.toDomain()
	return &c, nil
}

func (r *CourseRepository) List(ctx context.Context, filter ports.CourseFilter) ([]domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := bson.M{}
	if filter.Level != "" {
		q["level"] = string(filter.Level)
	}
	if filter.TeacherID != "" {
		q["teacher_id"] = filter.TeacherID
	}

	cur, err := r.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	var docs []courseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}

	out := make([]domain.Course, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Delete removes the course and its subscriptions in one transaction.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCourseNotFound
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.col.DeleteOne(sc, bson.M{"_id": oid})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, domain.ErrCourseNotFound
		}
		_, err = r.subs.DeleteMany(sc, bson.M{"course_id": id})
		return nil, err
	})
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return err
		}
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

func (r *CourseRepository) Watch(ctx context.Context) (<-chan []domain.Course, error) {
	return watchSnapshots(ctx, r.col, func(ctx context.Context) ([]domain.Course, error) {
		return r.List(ctx, ports.CourseFilter{})
	})
}
