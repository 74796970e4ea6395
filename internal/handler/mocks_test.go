package handler

import (
	"context"
	"io"
	"net/http"

	"documind-api/internal/domain"
)

type mockAuthService struct {
	user      *domain.SupabaseUser
	err       error
	lastToken string
	admins    map[string]bool
	roleErr   error
}

func (m *mockAuthService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockAuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if m.roleErr != nil {
		return false, m.roleErr
	}
	return m.admins[userID], nil
}

type MockDocumentService struct {
	documents map[string]*domain.Document
	uploadErr error
	askErr    error
	uploaded  []byte
	uploadReq domain.UploadRequest
}

func NewMockDocumentService() *MockDocumentService {
	return &MockDocumentService{
		documents: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentService) List(ctx context.Context, userID string, token string) ([]*domain.Document, error) {
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.UserID == userID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *MockDocumentService) Upload(ctx context.Context, userID string, req domain.UploadRequest, token string) (*domain.Document, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	m.uploaded = data
	m.uploadReq = req
	size := int64(len(data))
	doc := &domain.Document{ID: "doc-new", UserID: userID, Title: "uploaded", FileName: req.FileName, FileSize: &size}
	m.documents[doc.ID] = doc
	return doc, nil
}

func (m *MockDocumentService) Delete(ctx context.Context, userID, documentID string, token string) error {
	doc, exists := m.documents[documentID]
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if doc.UserID != userID {
		return domain.ErrAccessDenied
	}
	delete(m.documents, documentID)
	return nil
}

func (m *MockDocumentService) Ask(ctx context.Context, userID string, req domain.AskRequest, token string) (*domain.AskResponse, error) {
	if m.askErr != nil {
		return nil, m.askErr
	}
	return &domain.AskResponse{Answer: "42", QAID: "qa-1", DocumentID: req.DocumentID}, nil
}

func (m *MockDocumentService) History(ctx context.Context, userID, documentID string, token string) ([]*domain.QAEntry, error) {
	if _, exists := m.documents[documentID]; !exists {
		return nil, domain.ErrDocumentNotFound
	}
	return nil, nil
}

type mockSubscriptionService struct {
	plans     []*domain.Plan
	sub       *domain.Subscription
	err       error
	deleted   []string
	defaulted []string
}

func (m *mockSubscriptionService) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	return m.plans, m.err
}

func (m *mockSubscriptionService) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	if m.sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return m.sub, nil
}

func (m *mockSubscriptionService) Cancel(ctx context.Context, userID string) (*domain.Subscription, error) {
	if m.sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	m.sub.CancelAtPeriodEnd = true
	return m.sub, nil
}

func (m *mockSubscriptionService) BillingHistory(ctx context.Context, userID string) ([]*domain.BillingHistoryEntry, error) {
	return nil, m.err
}

func (m *mockSubscriptionService) PaymentMethods(ctx context.Context, userID string) ([]*domain.PaymentMethod, error) {
	return nil, m.err
}

func (m *mockSubscriptionService) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSubscriptionService) SetDefaultPaymentMethod(ctx context.Context, userID, id string) error {
	if m.err != nil {
		return m.err
	}
	m.defaulted = append(m.defaulted, id)
	return nil
}

func (m *mockSubscriptionService) Sweep(ctx context.Context) (*domain.SweepResult, error) {
	return &domain.SweepResult{}, nil
}

type mockLimitService struct {
	decision domain.LimitDecision
}

func (m *mockLimitService) Evaluate(ctx context.Context, userID string) domain.LimitDecision {
	return m.decision
}

type mockCheckoutService struct {
	cardResult    *domain.CheckoutResult
	paypalResult  *domain.CheckoutResult
	cryptoResult  *domain.CheckoutResult
	err           error
	lastRequest   domain.CheckoutRequest
	lastIntentID  string
	lastPayPalID  string
	lastCryptoRef string
}

func (m *mockCheckoutService) StartCardCheckout(ctx context.Context, user *domain.SupabaseUser, req domain.CheckoutRequest) (*domain.CardCheckout, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CardCheckout{OrderID: "order-1", PaymentIntentID: "pi_1", ClientSecret: "pi_1_secret", Currency: "usd"}, nil
}

func (m *mockCheckoutService) ConfirmCardPayment(ctx context.Context, userID, paymentIntentID string) (*domain.CheckoutResult, error) {
	m.lastIntentID = paymentIntentID
	if m.err != nil {
		return nil, m.err
	}
	return m.cardResult, nil
}

func (m *mockCheckoutService) StartPayPalCheckout(ctx context.Context, user *domain.SupabaseUser, req domain.CheckoutRequest) (*domain.PayPalCheckout, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.PayPalCheckout{OrderID: "order-1", PayPalOrderID: "PAYPAL-1", ApprovalURL: "https://paypal.test/approve"}, nil
}

func (m *mockCheckoutService) CapturePayPalOrder(ctx context.Context, userID, paypalOrderID string) (*domain.CheckoutResult, error) {
	m.lastPayPalID = paypalOrderID
	if m.err != nil {
		return nil, m.err
	}
	return m.paypalResult, nil
}

func (m *mockCheckoutService) StartCryptoCheckout(ctx context.Context, user *domain.SupabaseUser, req domain.CryptoCheckoutRequest) (*domain.CryptoCheckout, error) {
	m.lastRequest = req.CheckoutRequest
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CryptoCheckout{OrderID: "order-1", Network: req.Network, WalletAddress: "wallet", Currency: "USD"}, nil
}

func (m *mockCheckoutService) ConfirmCryptoPayment(ctx context.Context, orderID, transactionRef string) (*domain.CheckoutResult, error) {
	m.lastCryptoRef = transactionRef
	if m.err != nil {
		return nil, m.err
	}
	return m.cryptoResult, nil
}

type mockAdminService struct {
	roles       []*domain.UserRole
	checkout    *mockCheckoutService
	lastUserIDs []string
}

func (m *mockAdminService) ListUsers(ctx context.Context, userIDs []string) ([]*domain.UserRole, error) {
	m.lastUserIDs = userIDs
	return m.roles, nil
}

func (m *mockAdminService) SetRole(ctx context.Context, userID string, role domain.Role) (*domain.UserRole, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	saved := &domain.UserRole{UserID: userID, Role: role}
	m.roles = append(m.roles, saved)
	return saved, nil
}

func (m *mockAdminService) ConfirmCryptoOrder(ctx context.Context, orderID, transactionRef string) (*domain.CheckoutResult, error) {
	return m.checkout.ConfirmCryptoPayment(ctx, orderID, transactionRef)
}

func createContextWithUser(r *http.Request, user *domain.SupabaseUser) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

func createContextWithToken(r *http.Request, token string) *http.Request {
	ctx := context.WithValue(r.Context(), tokenContextKey, token)
	return r.WithContext(ctx)
}

func authenticated(r *http.Request, userID string) *http.Request {
	r = createContextWithUser(r, &domain.SupabaseUser{ID: userID, Email: userID + "@example.com"})
	return createContextWithToken(r, "test-token")
}

type mockContactService struct {
	err  error
	sent []domain.ContactMessage
}

func (m *mockContactService) Submit(ctx context.Context, msg domain.ContactMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
