package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

func courseD(id primitive.ObjectID, name string, ects float64, level domain.Level, teacherID string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "ects", Value: ects},
		{Key: "level", Value: string(level)},
		{Key: "teacher_id", Value: teacherID},
	}
}

func TestCourseRepository(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		c, err := repo.Create(ctx, &domain.Course{Name: "Optics", ECTS: 5, Level: domain.LevelA1, TeacherID: "t1"})
		require.NoError(mt, err)
		assert.True(mt, primitive.IsValidObjectID(c.ID))
		assert.Equal(mt, "Optics", c.Name)
	})

	mt.Run("create failure", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		mt.AddMockResponses(serverFailure())

		_, err := repo.Create(ctx, &domain.Course{Name: "Optics", ECTS: 5, Level: domain.LevelA1})
		assert.Error(mt, err)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, collectionCourses), mtest.FirstBatch,
			courseD(oid, "Optics", 5, domain.LevelA1, "t1")))

		c, err := repo.FindByID(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, domain.Course{ID: oid.Hex(), Name: "Optics", ECTS: 5, Level: domain.LevelA1, TeacherID: "t1"}, *c)
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		mt.AddMockResponses(noDocuments(mt, collectionCourses))

		_, err := repo.FindByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, domain.ErrCourseNotFound)

		_, err = repo.FindByID(ctx, "zzz")
		assert.ErrorIs(mt, err, domain.ErrCourseNotFound)
	})

	mt.Run("list applies filter", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, collectionCourses), mtest.FirstBatch,
			courseD(primitive.NewObjectID(), "Algebra", 6, domain.LevelB1, "t1"),
			courseD(primitive.NewObjectID(), "Logic", 4, domain.LevelB1, "t1"),
		))

		courses, err := repo.List(ctx, ports.CourseFilter{Level: domain.LevelB1, TeacherID: "t1"})
		require.NoError(mt, err)
		require.Len(mt, courses, 2)
		assert.Equal(mt, "Logic", courses[1].Name)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "B1", evt.Command.Lookup("filter", "level").StringValue())
		assert.Equal(mt, "t1", evt.Command.Lookup("filter", "teacher_id").StringValue())
	})

	mt.Run("list empty", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		mt.AddMockResponses(noDocuments(mt, collectionCourses))

		courses, err := repo.List(ctx, ports.CourseFilter{})
		require.NoError(mt, err)
		assert.NotNil(mt, courses)
		assert.Empty(mt, courses)
	})

	mt.Run("delete cascades in a transaction", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
			mtest.CreateSuccessResponse(),
		)

		id := primitive.NewObjectID().Hex()
		require.NoError(mt, repo.Delete(ctx, id))

		var names []string
		for evt := mt.GetStartedEvent(); evt != nil; evt = mt.GetStartedEvent() {
			names = append(names, evt.CommandName)
		}
		assert.Equal(mt, []string{"delete", "delete", "commitTransaction"}, names)
	})

	mt.Run("delete missing aborts", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateSuccessResponse(),
		)

		err := repo.Delete(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, domain.ErrCourseNotFound)

		var names []string
		for evt := mt.GetStartedEvent(); evt != nil; evt = mt.GetStartedEvent() {
			names = append(names, evt.CommandName)
		}
		assert.Equal(mt, []string{"delete", "abortTransaction"}, names)
	})

	mt.Run("delete malformed id", func(mt *mtest.T) {
		repo := NewCourseRepository(mt.DB)
		assert.ErrorIs(mt, repo.Delete(ctx, "nope"), domain.ErrCourseNotFound)
	})
}
