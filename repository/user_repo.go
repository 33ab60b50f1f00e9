package repository

import (
	"context"
	"time"

	"multishop-server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepo struct {
	src ModelSource
}

func NewUserRepo(src ModelSource) *UserRepo {
	return &UserRepo{src: src}
}

func (r *UserRepo) model(ctx context.Context) (*models.Model[models.User], error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return nil, err
	}
	return set.User, nil
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"password": 0}).SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.FindOne(ctx, filter)
}

func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) Insert(ctx context.Context, u *models.User) error {
	m, err := r.model(ctx)
	if err != nil {
		return err
	}
	id, err := m.InsertOne(ctx, u)
	if err != nil {
		return err
	}
	u.ID, err = insertedID(id)
	return err
}

func (r *UserRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{"password": 0}))
}

func (r *UserRepo) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m, err := r.model(ctx)
	if err != nil {
		return err
	}
	_, err = m.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_time": at}})
	return err
}

func (r *UserRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	m, err := r.model(ctx)
	if err != nil {
		return false, err
	}
	n, err := m.DeleteOne(ctx, bson.M{"_id": id})
	return n > 0, err
}

type AddressRepo struct {
	src ModelSource
}

func NewAddressRepo(src ModelSource) *AddressRepo {
	return &AddressRepo{src: src}
}

func (r *AddressRepo) model(ctx context.Context) (*models.Model[models.UserAddress], error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return nil, err
	}
	return set.Address, nil
}

// List 默认地址在前，其余按更新时间倒序
func (r *AddressRepo) List(ctx context.Context, userID primitive.ObjectID) ([]models.UserAddress, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	sort := bson.D{{Key: "is_default", Value: -1}, {Key: "updatedAt", Value: -1}}
	return m.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(sort))
}

func (r *AddressRepo) Find(ctx context.Context, userID, id primitive.ObjectID) (*models.UserAddress, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.FindOne(ctx, bson.M{"_id": id, "user_id": userID})
}

func (r *AddressRepo) Insert(ctx context.Context, a *models.UserAddress) error {
	m, err := r.model(ctx)
	if err != nil {
		return err
	}
	id, err := m.InsertOne(ctx, a)
	if err != nil {
		return err
	}
	a.ID, err = insertedID(id)
	return err
}

func (r *AddressRepo) Replace(ctx context.Context, a *models.UserAddress) error {
	m, err := r.model(ctx)
	if err != nil {
		return err
	}
	_, err = m.ReplaceOne(ctx, bson.M{"_id": a.ID, "user_id": a.UserID}, a)
	return err
}

func (r *AddressRepo) ClearDefault(ctx context.Context, userID, exceptID primitive.ObjectID) error {
	m, err := r.model(ctx)
	if err != nil {
		return err
	}
	filter := bson.M{"user_id": userID, "is_default": true}
	if !exceptID.IsZero() {
		filter["_id"] = bson.M{"$ne": exceptID}
	}
	_, err = m.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_default": false}})
	return err
}

func (r *AddressRepo) Delete(ctx context.Context, userID, id primitive.ObjectID) (bool, error) {
	m, err := r.model(ctx)
	if err != nil {
		return false, err
	}
	n, err := m.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	return n > 0, err
}
