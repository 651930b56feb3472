package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

const (
	collectionUsers    = "users"
	collectionStudents = "students"
	collectionTeachers = "teachers"
)

// UserRepository implements ports.UserRepository. Users and their role
// profiles live in separate collections and are written in one transaction.
type UserRepository struct {
	client   *mongo.Client
	users    *mongo.Collection
	students *mongo.Collection
	teachers *mongo.Collection
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		client:   db.Client(),
		users:    db.Collection(collectionUsers),
		students: db.Collection(collectionStudents),
		teachers: db.Collection(collectionTeachers),
	}
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type studentDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	FirstName   string             `bson:"first_name"`
	LastName    string             `bson:"last_name"`
	DateOfBirth time.Time          `bson:"date_of_birth"`
	Gender      string             `bson:"gender"`
	Level       string             `bson:"level"`
}

type teacherDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	FirstName string             `bson:"first_name"`
	LastName  string             `bson:"last_name"`
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func (d studentDoc) toDomain() *domain.Student {
	return &domain.Student{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		DateOfBirth: d.DateOfBirth.UTC(),
		Gender:      domain.Gender(d.Gender),
		Level:       domain.Level(d.Level),
	}
}

func (d teacherDoc) toDomain() *domain.Teacher {
	return &domain.Teacher{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
	}
}

// CreateAccount inserts the user and its profile atomically. A taken email
// surfaces as domain.ErrUserExists through the unique index.
func (r *UserRepository) CreateAccount(ctx context.Context, acct *domain.Account) (*domain.Account, error) {
	if acct == nil || acct.User == nil {
		return nil, errors.New("create account: missing user")
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.insertAccount(sc, acct)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return res.(*domain.Account), nil
}

func (r *UserRepository) insertAccount(ctx context.Context, acct *domain.Account) (*domain.Account, error) {
	created := acct.User.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	udoc := userDoc{
		ID:           primitive.NewObjectID(),
		Email:        domain.NormalizeEmail(acct.User.Email),
		PasswordHash: acct.User.PasswordHash,
		Role:         string(acct.User.Role),
		CreatedAt:    created.UTC().Truncate(time.Millisecond),
	}
	if _, err := r.users.InsertOne(ctx, udoc); err != nil {
		return nil, err
	}

	out := &domain.Account{User: udoc.toDomain()}
	userID := udoc.ID.Hex()

	switch {
	case acct.Student != nil:
		sdoc := studentDoc{
			ID:          primitive.NewObjectID(),
			UserID:      userID,
			FirstName:   acct.Student.FirstName,
			LastName:    acct.Student.LastName,
			DateOfBirth: acct.Student.DateOfBirth.UTC(),
			Gender:      string(acct.Student.Gender),
			Level:       string(acct.Student.Level),
		}
		if _, err := r.students.InsertOne(ctx, sdoc); err != nil {
			return nil, err
		}
		out.Student = sdoc.toDomain()
	case acct.Teacher != nil:
		tdoc := teacherDoc{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			FirstName: acct.Teacher.FirstName,
			LastName:  acct.Teacher.LastName,
		}
		if _, err := r.teachers.InsertOne(ctx, tdoc); err != nil {
			return nil, err
		}
		out.Teacher = tdoc.toDomain()
	}
	return out, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findUser(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindStudentByUserID(ctx context.Context, userID string) (*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc studentDoc
	if err := r.students.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindTeacherByUserID(ctx context.Context, userID string) (*domain.Teacher, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc teacherDoc
	if err := r.teachers.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return doc.toDomain(), nil
}

// FindStudentsByIDs loads student profiles by profile id. Ids that are not
// valid ObjectIDs cannot match and are skipped.
func (r *UserRepository) FindStudentsByIDs(ctx context.Context, ids []string) ([]domain.Student, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []domain.Student{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.students.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	defer cur.Close(ctx)

	var docs []studentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	out := make([]domain.Student, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.toDomain())
	}
	return out, nil
}
