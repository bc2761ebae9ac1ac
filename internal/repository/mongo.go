package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/devmatch/backend/internal/config"
	"github.com/devmatch/backend/internal/domain"
)

const (
	usersCollection    = "users"
	requestsCollection = "connectionRequests"
)

type userDocument struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"emailId"`
	PasswordHash   string    `bson:"passwordHash,omitempty"`
	FirstName      string    `bson:"firstName"`
	LastName       string    `bson:"lastName"`
	Age            *int      `bson:"age,omitempty"`
	Gender         string    `bson:"gender,omitempty"`
	About          string    `bson:"about"`
	Skills         []string  `bson:"skills"`
	PhotoURL       string    `bson:"photoUrl"`
	IsPremium      bool      `bson:"isPremium"`
	MembershipType string    `bson:"membershipType,omitempty"`
	DeviceTokens   []string  `bson:"deviceTokens,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func (d *userDocument) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", d.ID, err)
	}
	skills := d.Skills
	if skills == nil {
		skills = []string{}
	}
	return &domain.User{
		ID:             id,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Age:            d.Age,
		Gender:         domain.Gender(d.Gender),
		About:          d.About,
		Skills:         skills,
		PhotoURL:       d.PhotoURL,
		IsPremium:      d.IsPremium,
		MembershipType: d.MembershipType,
		DeviceTokens:   d.DeviceTokens,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

type requestDocument struct {
	ID         string    `bson:"_id"`
	FromUserID string    `bson:"fromUserId"`
	ToUserID   string    `bson:"toUserId"`
	PairKey    string    `bson:"pairKey"`
	Status     string    `bson:"status"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func (d *requestDocument) toDomain() (*domain.ConnectionRequest, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt request id %q: %w", d.ID, err)
	}
	from, err := uuid.Parse(d.FromUserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt fromUserId %q: %w", d.FromUserID, err)
	}
	to, err := uuid.Parse(d.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt toUserId %q: %w", d.ToUserID, err)
	}
	return &domain.ConnectionRequest{
		ID:         id,
		FromUserID: from,
		ToUserID:   to,
		Status:     domain.RequestStatus(d.Status),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

// MongoRepository implements Store on MongoDB
type MongoRepository struct {
	client   *mongo.Client
	users    *mongo.Collection
	requests *mongo.Collection
}

// NewMongoRepository connects to cfg.URL and verifies the connection
func NewMongoRepository(ctx context.Context, cfg config.DatabaseConfig) (*MongoRepository, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetMaxPoolSize(25).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Minute)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: unable to ping mongo: %v", domain.ErrStoreUnavailable, err)
	}

	db := client.Database(cfg.Name)
	return &MongoRepository{
		client:   client,
		users:    db.Collection(usersCollection),
		requests: db.Collection(requestsCollection),
	}, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return mongoErr(r.client.Ping(ctx, readpref.Primary()))
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Migrate creates the unique email and unique pair indexes
func (r *MongoRepository) Migrate(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "emailId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("emailId_unique"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("feed_order"),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", mongoErr(err))
	}

	_, err = r.requests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pairKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("pairKey_unique"),
		},
		{
			Keys:    bson.D{{Key: "toUserId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("received_by_status"),
		},
		{
			Keys:    bson.D{{Key: "fromUserId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("sent_by_status"),
		},
	})
	if err != nil {
		return fmt.Errorf("create request indexes: %w", mongoErr(err))
	}
	return nil
}

func (r *MongoRepository) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(params.Email),
		PasswordHash: params.PasswordHash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Skills:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, mongoErr(err)
	}
	return doc.toDomain()
}

func (r *MongoRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findUser(ctx, bson.M{"_id": id.String()})
}

func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(ctx, bson.M{"emailId": strings.ToLower(email)})
}

func (r *MongoRepository) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mongoErr(err)
	}
	return doc.toDomain()
}

func (r *MongoRepository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	return r.findUsers(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}}, options.Find().SetProjection(publicProjection()))
}

func (r *MongoRepository) UpdateUserProfile(ctx context.Context, id uuid.UUID, params domain.UpdateProfileParams) (*domain.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if params.FirstName != nil {
		set["firstName"] = *params.FirstName
	}
	if params.LastName != nil {
		set["lastName"] = *params.LastName
	}
	if params.Age != nil {
		set["age"] = *params.Age
	}
	if params.Gender != nil {
		set["gender"] = string(*params.Gender)
	}
	if params.About != nil {
		set["about"] = *params.About
	}
	if params.Skills != nil {
		set["skills"] = params.Skills
	}
	if params.PhotoURL != nil {
		set["photoUrl"] = *params.PhotoURL
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mongoErr(err)
	}
	return doc.toDomain()
}

func (r *MongoRepository) AddDeviceToken(ctx context.Context, id uuid.UUID, token string) error {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$addToSet": bson.M{"deviceTokens": token}},
	)
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) ListFeedCandidates(ctx context.Context, exclude []uuid.UUID, offset, limit int) ([]*domain.User, error) {
	filter := bson.M{"_id": bson.M{"$nin": idStrings(exclude)}}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)).
		SetProjection(publicProjection())
	return r.findUsers(ctx, filter, opts)
}

func (r *MongoRepository) findUsers(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.User, error) {
	cursor, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoErr(err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mongoErr(err)
	}
	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		u, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *MongoRepository) CreateConnectionRequest(ctx context.Context, req *domain.ConnectionRequest) error {
	doc := requestDocument{
		ID:         req.ID.String(),
		FromUserID: req.FromUserID.String(),
		ToUserID:   req.ToUserID.String(),
		PairKey:    domain.PairKey(req.FromUserID, req.ToUserID),
		Status:     string(req.Status),
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
	}

	if _, err := r.requests.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateRequest
		}
		return mongoErr(err)
	}
	return nil
}

func (r *MongoRepository) GetConnectionRequest(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	var doc requestDocument
	if err := r.requests.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, mongoErr(err)
	}
	return doc.toDomain()
}

func (r *MongoRepository) TransitionConnectionRequest(ctx context.Context, id, reviewer uuid.UUID, from, to domain.RequestStatus) (*domain.ConnectionRequest, error) {
	filter := bson.M{
		"_id":      id.String(),
		"toUserId": reviewer.String(),
		"status":   string(from),
	}
	update := bson.M{"$set": bson.M{
		"status":    string(to),
		"updatedAt": time.Now().UTC(),
	}}

	var doc requestDocument
	err := r.requests.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, getErr := r.GetConnectionRequest(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, domain.ErrInvalidState
		}
		return nil, mongoErr(err)
	}
	return doc.toDomain()
}

func (r *MongoRepository) ListReceivedRequests(ctx context.Context, userID uuid.UUID, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	return r.findRequests(ctx, bson.M{
		"toUserId": userID.String(),
		"status":   string(status),
	})
}

func (r *MongoRepository) ListConnectionsByStatus(ctx context.Context, userID uuid.UUID, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	return r.findRequests(ctx, bson.M{
		"$or": bson.A{
			bson.M{"fromUserId": userID.String()},
			bson.M{"toUserId": userID.String()},
		},
		"status": string(status),
	})
}

func (r *MongoRepository) RelatedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	reqs, err := r.findRequests(ctx, bson.M{
		"$or": bson.A{
			bson.M{"fromUserId": userID.String()},
			bson.M{"toUserId": userID.String()},
		},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.OtherParticipant(userID))
	}
	return ids, nil
}

func (r *MongoRepository) findRequests(ctx context.Context, filter bson.M) ([]*domain.ConnectionRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.requests.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoErr(err)
	}
	var docs []requestDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mongoErr(err)
	}
	reqs := make([]*domain.ConnectionRequest, 0, len(docs))
	for i := range docs {
		req, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// publicProjection hides credentials from queries that return other users
func publicProjection() bson.M {
	return bson.M{"passwordHash": 0, "deviceTokens": 0}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func mongoErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
