package database

import (
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"guildsync/entity"
	"guildsync/internal/config"
	"time"
)

const (
	collectionGuildConfigs  = "guild_configs"
	collectionBirthdays     = "birthdays"
	collectionMemberLogs    = "member_logs"
	collectionConversations = "conversations"
)

// channelFields maps admin-facing channel kinds to stored field names.
var channelFields = map[string]string{
	entity.ChannelWelcome:      "welcome_channel_id",
	entity.ChannelLog:          "log_channel_id",
	entity.ChannelAnnouncement: "announcement_channel_id",
}

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureGuildConfig creates the per-guild settings document if missing;
// existing settings are never touched.
func (m *MongoDB) EnsureGuildConfig(guildID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGuildConfigs)
	filter := bson.D{{Key: "guild_id", Value: guildID}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "guild_id", Value: guildID},
		{Key: "welcome_channel_id", Value: ""},
		{Key: "log_channel_id", Value: ""},
		{Key: "announcement_channel_id", Value: ""},
		{Key: "default_role_id", Value: ""},
		{Key: "birthday_message", Value: ""},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

// GuildConfig returns nil without error when the guild was never configured.
func (m *MongoDB) GuildConfig(guildID string) (*entity.GuildConfig, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGuildConfigs)
	filter := bson.D{{Key: "guild_id", Value: guildID}}
	var conf entity.GuildConfig
	err = collection.FindOne(m.ctx, filter).Decode(&conf)
	if err != nil {
		return nil, m.findError(err)
	}
	return &conf, nil
}

// AnnouncingGuilds lists configs that have an announcement channel bound.
func (m *MongoDB) AnnouncingGuilds() ([]entity.GuildConfig, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGuildConfigs)
	filter := bson.D{{Key: "announcement_channel_id", Value: bson.D{{Key: "$ne", Value: ""}}}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var configs []entity.GuildConfig
	err = cursor.All(m.ctx, &configs)
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (m *MongoDB) SetGuildChannel(guildID, kind, channelID string) error {
	field, ok := channelFields[kind]
	if !ok {
		return fmt.Errorf("unknown channel kind: %s", kind)
	}
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGuildConfigs)
	filter := bson.D{{Key: "guild_id", Value: guildID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: field, Value: channelID},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) SetDefaultRole(guildID, roleID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGuildConfigs)
	filter := bson.D{{Key: "guild_id", Value: guildID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "default_role_id", Value: roleID},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) SetBirthdayMessage(guildID, message string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionGuildConfigs)
	filter := bson.D{{Key: "guild_id", Value: guildID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "birthday_message", Value: message},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

// SaveGuildConfig replaces the whole settings document; dashboard writes.
func (m *MongoDB) SaveGuildConfig(conf *entity.GuildConfig) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	conf.UpdatedAt = time.Now().UTC()
	collection := connection.Database(m.database).Collection(collectionGuildConfigs)
	filter := bson.D{{Key: "guild_id", Value: conf.GuildID}}
	update := bson.D{{Key: "$set", Value: conf}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) UpsertBirthday(birthday *entity.Birthday) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionBirthdays)
	filter := bson.D{{Key: "guild_id", Value: birthday.GuildID}, {Key: "user_id", Value: birthday.UserID}}
	update := bson.D{{Key: "$set", Value: birthday}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

// FindBirthday returns nil without error when the member has none stored.
func (m *MongoDB) FindBirthday(guildID, userID string) (*entity.Birthday, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionBirthdays)
	filter := bson.D{{Key: "guild_id", Value: guildID}, {Key: "user_id", Value: userID}}
	var birthday entity.Birthday
	err = collection.FindOne(m.ctx, filter).Decode(&birthday)
	if err != nil {
		return nil, m.findError(err)
	}
	return &birthday, nil
}

func (m *MongoDB) DeleteBirthday(guildID, userID string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionBirthdays)
	filter := bson.D{{Key: "guild_id", Value: guildID}, {Key: "user_id", Value: userID}}
	result, err := collection.DeleteOne(m.ctx, filter)
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoDB) GuildBirthdays(guildID string) ([]entity.Birthday, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionBirthdays)
	filter := bson.D{{Key: "guild_id", Value: guildID}}
	opts := options.Find().SetSort(bson.D{{Key: "birthday", Value: 1}})
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var birthdays []entity.Birthday
	err = cursor.All(m.ctx, &birthdays)
	if err != nil {
		return nil, err
	}
	return birthdays, nil
}

// BirthdaysOn lists every stored birthday matching a MM-DD key, across all
// guilds; the announcer groups them per guild.
func (m *MongoDB) BirthdaysOn(monthDay string) ([]entity.Birthday, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionBirthdays)
	filter := bson.D{{Key: "birthday", Value: monthDay}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var birthdays []entity.Birthday
	err = cursor.All(m.ctx, &birthdays)
	if err != nil {
		return nil, err
	}
	return birthdays, nil
}

func (m *MongoDB) SaveMemberEvent(event *entity.MemberEvent) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMemberLogs)
	_, err = collection.InsertOne(m.ctx, event)
	return err
}

func (m *MongoDB) RecentMemberEvents(guildID string, limit int) ([]entity.MemberEvent, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionMemberLogs)
	filter := bson.D{{Key: "guild_id", Value: guildID}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var events []entity.MemberEvent
	err = cursor.All(m.ctx, &events)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Conversation returns nil without error when the context has no history.
func (m *MongoDB) Conversation(contextKey string) (*entity.Conversation, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionConversations)
	filter := bson.D{{"context_key", contextKey}}
	var conversation entity.Conversation
	err = collection.FindOne(m.ctx, filter).Decode(&conversation)
	if err != nil {
		return nil, m.findError(err)
	}
	return &conversation, nil
}

func (m *MongoDB) SaveConversation(conversation *entity.Conversation) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	conversation.LastUpdated = time.Now().UTC()
	collection := connection.Database(m.database).Collection(collectionConversations)
	filter := bson.D{{"context_key", conversation.ContextKey}}
	update := bson.D{{"$set", conversation}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) DeleteConversation(contextKey string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionConversations)
	filter := bson.D{{"context_key", contextKey}}
	_, err = collection.DeleteOne(m.ctx, filter)
	return err
}
