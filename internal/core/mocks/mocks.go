package mocks

import (
	"context"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, params ports.ListUsersParams) ([]*domain.User, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAnnouncementRepository is a mock implementation of ports.AnnouncementRepository
type MockAnnouncementRepository struct {
	mock.Mock
}

func NewMockAnnouncementRepository() *MockAnnouncementRepository {
	return &MockAnnouncementRepository{}
}

func (m *MockAnnouncementRepository) Create(ctx context.Context, a *domain.Announcement) (*domain.Announcement, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Announcement), args.Error(1)
}

func (m *MockAnnouncementRepository) GetByID(ctx context.Context, id int64) (*domain.Announcement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Announcement), args.Error(1)
}

func (m *MockAnnouncementRepository) List(ctx context.Context, params ports.ListAnnouncementsParams) ([]*domain.Announcement, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Announcement), args.Get(1).(int64), args.Error(2)
}

func (m *MockAnnouncementRepository) Update(ctx context.Context, a *domain.Announcement) (*domain.Announcement, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Announcement), args.Error(1)
}

func (m *MockAnnouncementRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCommentRepository is a mock implementation of ports.CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	args := m.Called(ctx, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) GetWithContext(ctx context.Context, id int64) (*domain.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Comment, error) {
	args := m.Called(ctx, announcementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) List(ctx context.Context, params ports.ListCommentsParams) ([]*domain.Comment, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Comment), args.Get(1).(int64), args.Error(2)
}

func (m *MockCommentRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMetricsRepository is a mock implementation of ports.MetricsRepository
type MockMetricsRepository struct {
	mock.Mock
}

func NewMockMetricsRepository() *MockMetricsRepository {
	return &MockMetricsRepository{}
}

func (m *MockMetricsRepository) ComputeWeek(ctx context.Context, week domain.WeekRange) (*domain.WeeklyMetric, error) {
	args := m.Called(ctx, week)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeeklyMetric), args.Error(1)
}

func (m *MockMetricsRepository) Upsert(ctx context.Context, metric *domain.WeeklyMetric) (*domain.WeeklyMetric, error) {
	args := m.Called(ctx, metric)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeeklyMetric), args.Error(1)
}

func (m *MockMetricsRepository) List(ctx context.Context, params ports.ListWeeklyMetricsParams) ([]*domain.WeeklyMetric, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.WeeklyMetric), args.Get(1).(int64), args.Error(2)
}

// MockAuthorizationService is a mock implementation of ports.AuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) Can(ctx context.Context, userID int64, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizationService) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAuthService is a mock implementation of ports.AuthService
type MockAuthService struct {
	mock.Mock
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Register(ctx context.Context, actorID int64, params domain.UserRegistrationParams) (*domain.User, error) {
	args := m.Called(ctx, actorID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) EnsureAdmin(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, bool, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Bool(1), args.Error(2)
}

// MockUserService is a mock implementation of ports.UserService
type MockUserService struct {
	mock.Mock
}

func NewMockUserService() *MockUserService {
	return &MockUserService{}
}

func (m *MockUserService) ListUsers(ctx context.Context, actorID int64, params ports.ListUsersParams) ([]*domain.User, int64, error) {
	args := m.Called(ctx, actorID, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserService) GetUser(ctx context.Context, actorID, userID int64) (*domain.User, error) {
	args := m.Called(ctx, actorID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, actorID, userID int64, update domain.UserUpdate) (*domain.User, error) {
	args := m.Called(ctx, actorID, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	args := m.Called(ctx, actorID, userID)
	return args.Error(0)
}

// MockAnnouncementService is a mock implementation of ports.AnnouncementService
type MockAnnouncementService struct {
	mock.Mock
}

func NewMockAnnouncementService() *MockAnnouncementService {
	return &MockAnnouncementService{}
}

func (m *MockAnnouncementService) Create(ctx context.Context, actorID int64, params domain.AnnouncementParams) (*domain.Announcement, error) {
	args := m.Called(ctx, actorID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Announcement), args.Error(1)
}

func (m *MockAnnouncementService) Get(ctx context.Context, id int64) (*domain.Announcement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Announcement), args.Error(1)
}

func (m *MockAnnouncementService) List(ctx context.Context, params ports.ListAnnouncementsParams) ([]*domain.Announcement, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Announcement), args.Get(1).(int64), args.Error(2)
}

func (m *MockAnnouncementService) Update(ctx context.Context, actorID, id int64, update domain.AnnouncementUpdate) (*domain.Announcement, error) {
	args := m.Called(ctx, actorID, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Announcement), args.Error(1)
}

func (m *MockAnnouncementService) Delete(ctx context.Context, actorID, id int64) error {
	args := m.Called(ctx, actorID, id)
	return args.Error(0)
}

// MockCommentService is a mock implementation of ports.CommentService
type MockCommentService struct {
	mock.Mock
}

func NewMockCommentService() *MockCommentService {
	return &MockCommentService{}
}

func (m *MockCommentService) CreateComment(ctx context.Context, params ports.CreateCommentParams) (*domain.Comment, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentService) ListForAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Comment, error) {
	args := m.Called(ctx, announcementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Comment), args.Error(1)
}

func (m *MockCommentService) ListComments(ctx context.Context, params ports.ListCommentsParams) ([]*domain.Comment, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Comment), args.Get(1).(int64), args.Error(2)
}

func (m *MockCommentService) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	args := m.Called(ctx, actorID, commentID)
	return args.Error(0)
}

// MockMetricsService is a mock implementation of ports.MetricsService
type MockMetricsService struct {
	mock.Mock
}

func NewMockMetricsService() *MockMetricsService {
	return &MockMetricsService{}
}

func (m *MockMetricsService) ListWeekly(ctx context.Context, params ports.ListWeeklyMetricsParams) ([]*domain.WeeklyMetric, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.WeeklyMetric), args.Get(1).(int64), args.Error(2)
}

func (m *MockMetricsService) RecalculateWeek(ctx context.Context, actorID int64, day time.Time) (*domain.WeeklyMetric, error) {
	args := m.Called(ctx, actorID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeeklyMetric), args.Error(1)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.BroadcastEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockEventBroadcaster) ClientCount() int {
	args := m.Called()
	return args.Int(0)
}

// MockEventBus is a mock implementation of ports.EventBus
type MockEventBus struct {
	mock.Mock
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{}
}

func (m *MockEventBus) Publish(ctx context.Context, topic string, payload any) {
	m.Called(ctx, topic, payload)
}

func (m *MockEventBus) Subscribe(topic string, listener ports.EventListener) ports.Subscription {
	args := m.Called(topic, listener)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(ports.Subscription)
}

// MockTransactionManager runs the callback inline without a transaction.
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
