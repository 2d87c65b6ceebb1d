package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// accountDoc - представление учётной записи в коллекции users.
type accountDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	FullName     string             `bson:"full_name"`
	PasswordHash string             `bson:"password_hash"`
	Avatar       string             `bson:"avatar"`
	CoverImage   string             `bson:"cover_image"`
	RefreshToken string             `bson:"refresh_token,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d *accountDoc) toModel() *models.Account {
	return &models.Account{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		PasswordHash: d.PasswordHash,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// MongoDB DateTime хранит миллисекунды.
func nowMS() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// CreateAccount вставляет документ; дубликат по уникальному индексу - storage.ErrAlreadyExists.
func (m *Mongo) CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error) {
	const op = "storage/mongo/CreateAccount"

	now := nowMS()
	doc := accountDoc{
		Username:     acc.Username,
		Email:        acc.Email,
		FullName:     acc.FullName,
		PasswordHash: acc.PasswordHash,
		Avatar:       acc.Avatar,
		CoverImage:   acc.CoverImage,
		RefreshToken: acc.RefreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := m.users.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: inserted id type", op)
	}

	doc.ID = oid
	return doc.toModel(), nil
}

// AccountByHandleOrEmail ищет по username ИЛИ email. При совпадении с двумя
// разными документами возвращается первый найденный FindOne.
func (m *Mongo) AccountByHandleOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	const op = "storage/mongo/AccountByHandleOrEmail"

	var or bson.A
	if username != "" {
		or = append(or, bson.D{{Key: "username", Value: username}})
	}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}

	if len(or) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc accountDoc
	if err := m.users.FindOne(ctx, bson.D{{Key: "$or", Value: or}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// AccountByID возвращает запись по hex ObjectID.
// Некорректный формат id трактуется как «нет такой записи».
func (m *Mongo) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage/mongo/AccountByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc accountDoc
	if err := m.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel(), nil
}

// SetRefreshToken перезаписывает refresh-токен, пустое значение снимает поле ($unset).
func (m *Mongo) SetRefreshToken(ctx context.Context, id, token string) error {
	const op = "storage/mongo/SetRefreshToken"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var update bson.D
	if token == "" {
		update = bson.D{
			{Key: "$unset", Value: bson.D{{Key: "refresh_token", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: nowMS()}}},
		}
	} else {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: "refresh_token", Value: token},
			{Key: "updated_at", Value: nowMS()},
		}}}
	}

	res, err := m.users.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RotateRefreshToken выполняет compare-and-swap в одном UpdateOne:
// фильтр по _id и текущему значению токена.
func (m *Mongo) RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	const op = "storage/mongo/RotateRefreshToken"

	if presented == "" {
		return false, nil
	}

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "refresh_token", Value: presented}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "refresh_token", Value: next},
			{Key: "updated_at", Value: nowMS()},
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res.MatchedCount == 1, nil
}

// UpdatePassword сохраняет новый хэш пароля.
func (m *Mongo) UpdatePassword(ctx context.Context, id, passwordHash string) (*models.Account, error) {
	const op = "storage/mongo/UpdatePassword"

	acc, err := m.updateFields(ctx, id, bson.D{{Key: "password_hash", Value: passwordHash}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

// UpdateDetails меняет full_name и email.
func (m *Mongo) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error) {
	const op = "storage/mongo/UpdateDetails"

	acc, err := m.updateFields(ctx, id, bson.D{
		{Key: "full_name", Value: fullName},
		{Key: "email", Value: email},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

// UpdateAvatar сохраняет ссылку на аватар.
func (m *Mongo) UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error) {
	const op = "storage/mongo/UpdateAvatar"

	acc, err := m.updateFields(ctx, id, bson.D{{Key: "avatar", Value: url}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

// UpdateCoverImage сохраняет ссылку на обложку.
func (m *Mongo) UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error) {
	const op = "storage/mongo/UpdateCoverImage"

	acc, err := m.updateFields(ctx, id, bson.D{{Key: "cover_image", Value: url}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

// updateFields применяет $set (с updated_at) и возвращает документ после обновления.
func (m *Mongo) updateFields(ctx context.Context, id string, set bson.D) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, storage.ErrNotFound
	}

	set = append(set, bson.E{Key: "updated_at", Value: nowMS()})

	var doc accountDoc
	err = m.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongodriver.ErrNoDocuments):
			return nil, storage.ErrNotFound
		case mongodriver.IsDuplicateKeyError(err):
			return nil, storage.ErrAlreadyExists
		default:
			return nil, err
		}
	}

	return doc.toModel(), nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.AccountStorage = (*Mongo)(nil)
