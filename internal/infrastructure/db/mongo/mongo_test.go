package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// newMockT returns a test harness whose clients talk to an in-process mock
// deployment; each mt.Run gets a fresh client and mt.DB.
func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}

func noDocuments(mt *mtest.T, coll string) bson.D {
	return mtest.CreateCursorResponse(0, ns(mt, coll), mtest.FirstBatch)
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error",
	})
}

func serverFailure() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    1,
		Message: "internal failure",
		Name:    "InternalError",
	})
}
