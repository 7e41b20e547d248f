package databases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/sentinel-campus-api/databases"
	"github.com/linesmerrill/sentinel-campus-api/databases/mocks"
	"github.com/linesmerrill/sentinel-campus-api/models"
)

func signup() models.AdminSignupRequest {
	return models.AdminSignupRequest{
		Email:    " Officer@Campus.edu ",
		Password: "secret1",
		Name:     "Officer Diaz",
		Role:     models.RoleSecurity,
	}
}

func TestMemoryAdminDatabase_CreateAndFind(t *testing.T) {
	adminDB := databases.NewMemoryAdminDatabase()

	admin, err := adminDB.Create(context.Background(), signup())
	require.NoError(t, err)
	assert.NotEmpty(t, admin.ID)
	assert.Equal(t, "officer@campus.edu", admin.Email)
	assert.NotEqual(t, "secret1", admin.PasswordHash)
	assert.True(t, databases.CheckAdminPassword(admin, "secret1"))
	assert.False(t, databases.CheckAdminPassword(admin, "wrong-password"))

	byEmail, err := adminDB.FindByEmail(context.Background(), "OFFICER@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, byEmail.ID)

	byID, err := adminDB.FindByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.Email, byID.Email)
}

func TestMemoryAdminDatabase_DuplicateEmail(t *testing.T) {
	adminDB := databases.NewMemoryAdminDatabase()

	_, err := adminDB.Create(context.Background(), signup())
	require.NoError(t, err)

	_, err = adminDB.Create(context.Background(), signup())
	assert.ErrorIs(t, err, databases.ErrDuplicateEmail)
}

func TestMemoryAdminDatabase_NotFound(t *testing.T) {
	adminDB := databases.NewMemoryAdminDatabase()

	_, err := adminDB.FindByEmail(context.Background(), "nobody@campus.edu")
	assert.ErrorIs(t, err, databases.ErrNotFound)

	_, err = adminDB.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestCheckAdminPasswordNilAdmin(t *testing.T) {
	assert.False(t, databases.CheckAdminPassword(nil, "secret1"))
}

func TestAdminDatabase_CreateDuplicateEmail(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.Admin)
		arg.ID = "admin-1"
		arg.Email = "officer@campus.edu"
	})
	collectionHelper.
		On("FindOne", mock.Anything, bson.M{"email": "officer@campus.edu"}).
		Return(srHelper)
	dbHelper.On("Collection", "admins").Return(collectionHelper)

	adminDB := databases.NewAdminDatabase(dbHelper, mongoOptions())

	_, err := adminDB.Create(context.Background(), signup())
	assert.ErrorIs(t, err, databases.ErrDuplicateEmail)
	collectionHelper.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestAdminDatabase_Create(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}
	iorHelper := &mocks.InsertOneResultHelper{}

	srHelper.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	collectionHelper.
		On("FindOne", mock.Anything, bson.M{"email": "officer@campus.edu"}).
		Return(srHelper)
	collectionHelper.
		On("InsertOne", mock.Anything, mock.AnythingOfType("*models.Admin")).
		Return(iorHelper, nil)
	dbHelper.On("Collection", "admins").Return(collectionHelper)

	adminDB := databases.NewAdminDatabase(dbHelper, mongoOptions())

	admin, err := adminDB.Create(context.Background(), signup())
	require.NoError(t, err)
	assert.Equal(t, "officer@campus.edu", admin.Email)
	assert.Equal(t, models.RoleSecurity, admin.Role)
	collectionHelper.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestHashAdminPassword(t *testing.T) {
	hash, err := databases.HashAdminPassword("n3w-s3cret")
	assert.NoError(t, err)
	assert.True(t, databases.CheckAdminPassword(&models.Admin{PasswordHash: hash}, "n3w-s3cret"))
	assert.False(t, databases.CheckAdminPassword(&models.Admin{PasswordHash: hash}, "old-secret"))
}
