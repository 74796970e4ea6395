package service

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"documind-api/internal/domain"

	"github.com/shopspring/decimal"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) add(line string) {
	m.mu.Lock()
	m.messages = append(m.messages, line)
	m.mu.Unlock()
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.add("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	if err == nil {
		m.add("ERROR: " + msg)
		return
	}
	m.add("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.add("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.add("WARN: " + msg)
}

func (m *MockLogger) contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.messages {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func int64Ptr(n int64) *int64 { return &n }

// mockBillingRepository keeps billing rows in memory. WithTx restores the
// previous state when fn fails.
type mockBillingRepository struct {
	plans   map[string]domain.Plan
	subs    map[string]domain.Subscription
	ledger  []domain.BillingHistoryEntry
	methods []domain.PaymentMethod
	orders  map[string]domain.CheckoutOrder
	seq     int

	getActiveErr   error
	ensureCalls    int
	completeErr    error
	insertErr      error
	listPlansCalls int
	txCount        int
}

func newMockBillingRepository() *mockBillingRepository {
	return &mockBillingRepository{
		plans: map[string]domain.Plan{
			"plan-free": {
				ID: "plan-free", Name: "Free", IsActive: true,
				PriceMonthly: decimal.Zero, PriceYearly: decimal.Zero,
				MaxDocuments: int64Ptr(10), MaxQuestionsPerMonth: int64Ptr(50), MaxStorageBytes: int64Ptr(100 << 20),
			},
			"plan-basic": {
				ID: "plan-basic", Name: "Basic", IsActive: true,
				PriceMonthly: decimal.RequireFromString("9.00"), PriceYearly: decimal.RequireFromString("90.00"),
				MaxDocuments: int64Ptr(100), MaxQuestionsPerMonth: int64Ptr(500), MaxStorageBytes: int64Ptr(5 << 30),
			},
			"plan-pro": {
				ID: "plan-pro", Name: "Pro", IsActive: true,
				PriceMonthly: decimal.RequireFromString("29.00"), PriceYearly: decimal.RequireFromString("290.00"),
			},
		},
		subs:   map[string]domain.Subscription{},
		orders: map[string]domain.CheckoutOrder{},
	}
}

func (m *mockBillingRepository) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockBillingRepository) WithTx(ctx context.Context, fn func(store domain.BillingStore) error) error {
	m.txCount++
	subs, ledger, methods, orders := maps.Clone(m.subs), slices.Clone(m.ledger), slices.Clone(m.methods), maps.Clone(m.orders)
	if err := fn(m); err != nil {
		m.subs, m.ledger, m.methods, m.orders = subs, ledger, methods, orders
		return err
	}
	return nil
}

func (m *mockBillingRepository) GetPlanByID(ctx context.Context, id string) (*domain.Plan, error) {
	plan, ok := m.plans[id]
	if !ok || !plan.IsActive {
		return nil, domain.ErrPlanNotFound
	}
	return &plan, nil
}

func (m *mockBillingRepository) GetPlanByName(ctx context.Context, name string) (*domain.Plan, error) {
	for _, plan := range m.plans {
		if plan.IsActive && plan.Name == name {
			return &plan, nil
		}
	}
	return nil, domain.ErrPlanNotFound
}

func (m *mockBillingRepository) ListActivePlans(ctx context.Context) ([]*domain.Plan, error) {
	m.listPlansCalls++
	var plans []*domain.Plan
	for _, plan := range m.plans {
		if plan.IsActive {
			plan := plan
			plans = append(plans, &plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].PriceMonthly.LessThan(plans[j].PriceMonthly) })
	return plans, nil
}

func (m *mockBillingRepository) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	saved := *sub
	saved.Plan = nil
	if existing, ok := m.subs[sub.UserID]; ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.ID = m.nextID("sub")
		saved.CreatedAt = time.Now()
	}
	saved.UpdatedAt = time.Now()
	m.subs[sub.UserID] = saved
	return &saved, nil
}

func (m *mockBillingRepository) EnsureSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	m.ensureCalls++
	if existing, ok := m.subs[sub.UserID]; ok && existing.Status == domain.SubscriptionStatusActive {
		return m.GetActiveSubscription(ctx, sub.UserID)
	}
	return m.UpsertSubscription(ctx, sub)
}

func (m *mockBillingRepository) GetActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	if m.getActiveErr != nil {
		return nil, m.getActiveErr
	}
	sub, ok := m.subs[userID]
	if !ok || sub.Status != domain.SubscriptionStatusActive {
		return nil, domain.ErrSubscriptionNotFound
	}
	if plan, ok := m.plans[sub.PlanID]; ok {
		sub.Plan = &plan
	}
	return &sub, nil
}

func (m *mockBillingRepository) CancelSubscription(ctx context.Context, userID string, at time.Time) (*domain.Subscription, error) {
	sub, ok := m.subs[userID]
	if !ok || sub.Status != domain.SubscriptionStatusActive {
		return nil, domain.ErrSubscriptionNotFound
	}
	sub.CancelAtPeriodEnd = true
	sub.CancelledAt = &at
	m.subs[userID] = sub
	return &sub, nil
}

func (m *mockBillingRepository) InsertBillingEntry(ctx context.Context, entry *domain.BillingHistoryEntry) (*domain.BillingHistoryEntry, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	saved := *entry
	saved.ID = m.nextID("bill")
	if saved.Currency == "" {
		saved.Currency = domain.DefaultCurrency
	}
	saved.CreatedAt = time.Now()
	m.ledger = append(m.ledger, saved)
	return &saved, nil
}

func (m *mockBillingRepository) ListBillingHistory(ctx context.Context, userID string, limit int) ([]*domain.BillingHistoryEntry, error) {
	var out []*domain.BillingHistoryEntry
	for i := len(m.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if m.ledger[i].UserID == userID {
			entry := m.ledger[i]
			out = append(out, &entry)
		}
	}
	return out, nil
}

func (m *mockBillingRepository) UpsertPaymentMethod(ctx context.Context, pm *domain.PaymentMethod) (*domain.PaymentMethod, error) {
	saved := *pm
	idx := slices.IndexFunc(m.methods, func(x domain.PaymentMethod) bool {
		return x.DeletedAt == nil && x.UserID == pm.UserID && x.ProviderPaymentMethodID == pm.ProviderPaymentMethodID
	})
	if idx >= 0 {
		saved.ID = m.methods[idx].ID
		m.methods[idx] = saved
	} else {
		saved.ID = m.nextID("pm")
		m.methods = append(m.methods, saved)
	}
	if saved.IsDefault {
		for i := range m.methods {
			x := &m.methods[i]
			if x.ID != saved.ID && x.UserID == saved.UserID && x.Type == saved.Type {
				x.IsDefault = false
			}
		}
	}
	return &saved, nil
}

func (m *mockBillingRepository) ListPaymentMethods(ctx context.Context, userID string) ([]*domain.PaymentMethod, error) {
	var out []*domain.PaymentMethod
	for _, pm := range m.methods {
		if pm.UserID == userID && pm.DeletedAt == nil {
			pm := pm
			out = append(out, &pm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (m *mockBillingRepository) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	for _, pm := range m.methods {
		if pm.ID == id && pm.DeletedAt == nil {
			return &pm, nil
		}
	}
	return nil, domain.ErrPaymentMethodNotFound
}

func (m *mockBillingRepository) DeletePaymentMethod(ctx context.Context, id string, at time.Time) error {
	for i := range m.methods {
		if m.methods[i].ID == id && m.methods[i].DeletedAt == nil {
			m.methods[i].DeletedAt = &at
			m.methods[i].IsDefault = false
			return nil
		}
	}
	return domain.ErrPaymentMethodNotFound
}

func (m *mockBillingRepository) SetDefaultPaymentMethod(ctx context.Context, id string) error {
	target, err := m.GetPaymentMethod(ctx, id)
	if err != nil {
		return err
	}
	for i := range m.methods {
		x := &m.methods[i]
		if x.UserID == target.UserID && x.Type == target.Type && x.DeletedAt == nil {
			x.IsDefault = x.ID == id
		}
	}
	return nil
}

func (m *mockBillingRepository) CreateOrder(ctx context.Context, order *domain.CheckoutOrder) (*domain.CheckoutOrder, error) {
	saved := *order
	if saved.ID == "" {
		saved.ID = m.nextID("order")
	}
	if saved.Currency == "" {
		saved.Currency = domain.DefaultCurrency
	}
	saved.Status = domain.OrderStatusPending
	m.orders[saved.ID] = saved
	return &saved, nil
}

func (m *mockBillingRepository) GetOrder(ctx context.Context, id string) (*domain.CheckoutOrder, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (m *mockBillingRepository) GetOrderByProviderRef(ctx context.Context, provider, providerOrderID string) (*domain.CheckoutOrder, error) {
	for _, order := range m.orders {
		if order.Provider == provider && order.ProviderOrderID == providerOrderID {
			return &order, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockBillingRepository) SetOrderProviderRef(ctx context.Context, orderID, providerOrderID string) error {
	order, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.ProviderOrderID = providerOrderID
	m.orders[orderID] = order
	return nil
}

func (m *mockBillingRepository) RecordOrderTransaction(ctx context.Context, orderID, transactionID string) error {
	order, ok := m.orders[orderID]
	if ok && orderOpen(order.Status) {
		order.ProviderTransactionID = &transactionID
		m.orders[orderID] = order
	}
	return nil
}

func (m *mockBillingRepository) CompleteOrder(ctx context.Context, orderID, transactionID string, at time.Time) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	order, ok := m.orders[orderID]
	if !ok || !orderOpen(order.Status) {
		return domain.ErrOrderNotPending
	}
	order.Status = domain.OrderStatusCompleted
	order.ProviderTransactionID = &transactionID
	order.CompletedAt = &at
	m.orders[orderID] = order
	return nil
}

func orderOpen(status domain.OrderStatus) bool {
	return status == domain.OrderStatusPending || status == domain.OrderStatusExpired
}

func (m *mockBillingRepository) SweepSubscriptions(ctx context.Context, now time.Time) (*domain.SweepResult, error) {
	result := &domain.SweepResult{}
	for userID, sub := range m.subs {
		if sub.Status != domain.SubscriptionStatusActive || !sub.CurrentPeriodEnd.Before(now) {
			continue
		}
		if sub.CancelAtPeriodEnd {
			sub.Status = domain.SubscriptionStatusCancelled
			result.Cancelled++
		} else {
			sub.Status = domain.SubscriptionStatusExpired
			result.Expired++
		}
		m.subs[userID] = sub
	}
	for id, order := range m.orders {
		if order.IsExpired(now) {
			order.Status = domain.OrderStatusExpired
			m.orders[id] = order
			result.OrdersExpired++
		}
	}
	return result, nil
}

func (m *mockBillingRepository) entriesWithStatus(status domain.BillingStatus) []domain.BillingHistoryEntry {
	var out []domain.BillingHistoryEntry
	for _, e := range m.ledger {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type mockUsageRepository struct {
	documents int64
	questions int64
	storage   int64
	err       error

	mu    sync.Mutex
	since time.Time
}

func (m *mockUsageRepository) CountDocuments(ctx context.Context, userID string) (int64, error) {
	return m.documents, m.err
}

func (m *mockUsageRepository) CountQuestionsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	m.mu.Lock()
	m.since = since
	m.mu.Unlock()
	return m.questions, nil
}

func (m *mockUsageRepository) SumStorageBytes(ctx context.Context, userID string) (int64, error) {
	return m.storage, nil
}

type mockPlanCache struct {
	plans  []*domain.Plan
	getErr error
	sets   int
}

func (m *mockPlanCache) GetPlans(ctx context.Context) ([]*domain.Plan, error) {
	return m.plans, m.getErr
}

func (m *mockPlanCache) SetPlans(ctx context.Context, plans []*domain.Plan) error {
	m.sets++
	m.plans = plans
	return nil
}

func (m *mockPlanCache) Invalidate(ctx context.Context) error {
	m.plans = nil
	return nil
}

type mockCardGateway struct {
	intents    map[string]*domain.CardIntent
	lastCreate domain.CardIntentRequest
	createErr  error
}

func newMockCardGateway() *mockCardGateway {
	return &mockCardGateway{intents: map[string]*domain.CardIntent{}}
}

func (m *mockCardGateway) CreateIntent(ctx context.Context, req domain.CardIntentRequest) (*domain.CardIntent, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.lastCreate = req
	intent := &domain.CardIntent{
		ID:           fmt.Sprintf("pi_%d", len(m.intents)+1),
		ClientSecret: "secret",
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       "requires_payment_method",
		Metadata:     req.Metadata,
	}
	m.intents[intent.ID] = intent
	return intent, nil
}

func (m *mockCardGateway) GetIntent(ctx context.Context, id string) (*domain.CardIntent, error) {
	intent, ok := m.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	copied := *intent
	return &copied, nil
}

// pay simulates the client confirming the intent with a card.
func (m *mockCardGateway) pay(id string) {
	intent := m.intents[id]
	intent.Status = "succeeded"
	intent.MethodID = "pm_card_visa"
	intent.Card = &domain.CardDetails{Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030}
}

type mockPayPalGateway struct {
	orders      map[string]domain.PayPalOrderRequest
	captureResp *domain.PayPalCapture
	captures    int
}

func newMockPayPalGateway() *mockPayPalGateway {
	return &mockPayPalGateway{orders: map[string]domain.PayPalOrderRequest{}}
}

func (m *mockPayPalGateway) CreateOrder(ctx context.Context, req domain.PayPalOrderRequest) (*domain.PayPalOrder, error) {
	id := fmt.Sprintf("PAYPAL-%d", len(m.orders)+1)
	m.orders[id] = req
	return &domain.PayPalOrder{ID: id, Status: "CREATED", ApprovalURL: "https://paypal.test/approve/" + id}, nil
}

func (m *mockPayPalGateway) CaptureOrder(ctx context.Context, orderID string) (*domain.PayPalCapture, error) {
	m.captures++
	if m.captureResp != nil {
		resp := *m.captureResp
		resp.OrderID = orderID
		return &resp, nil
	}
	req := m.orders[orderID]
	return &domain.PayPalCapture{
		OrderID:    orderID,
		Status:     "COMPLETED",
		CaptureID:  "CAP-" + orderID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		PayerID:    "PAYER1",
		PayerEmail: "buyer@example.com",
	}, nil
}

type mockLimitService struct {
	decision domain.LimitDecision
	calls    int
}

func (m *mockLimitService) Evaluate(ctx context.Context, userID string) domain.LimitDecision {
	m.calls++
	return m.decision
}

func allowAll() domain.LimitDecision {
	return domain.LimitDecision{PlanName: "Pro", CanUploadDocument: true, CanAskQuestion: true}
}

type mockDocumentRepository struct {
	documents map[string]*domain.Document
	qa        []*domain.QAEntry
	createErr error
	qaErr     error
}

func newMockDocumentRepository() *mockDocumentRepository {
	return &mockDocumentRepository{documents: map[string]*domain.Document{}}
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *domain.Document, token string) (*domain.Document, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	saved := *doc
	saved.ID = fmt.Sprintf("doc-%d", len(m.documents)+1)
	m.documents[saved.ID] = &saved
	return &saved, nil
}

func (m *mockDocumentRepository) GetByID(ctx context.Context, id string, token string) (*domain.Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockDocumentRepository) ListByUser(ctx context.Context, userID string, token string) ([]*domain.Document, error) {
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.UserID == userID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *mockDocumentRepository) Delete(ctx context.Context, id string, token string) error {
	if _, ok := m.documents[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *mockDocumentRepository) InsertQA(ctx context.Context, entry *domain.QAEntry, token string) (*domain.QAEntry, error) {
	if m.qaErr != nil {
		return nil, m.qaErr
	}
	saved := *entry
	saved.ID = fmt.Sprintf("qa-%d", len(m.qa)+1)
	m.qa = append(m.qa, &saved)
	return &saved, nil
}

func (m *mockDocumentRepository) ListQA(ctx context.Context, userID, documentID string, token string) ([]*domain.QAEntry, error) {
	var out []*domain.QAEntry
	for i := len(m.qa) - 1; i >= 0; i-- {
		if m.qa[i].DocumentID == documentID {
			out = append(out, m.qa[i])
		}
	}
	return out, nil
}

type mockFileStorage struct {
	files     map[string][]byte
	removed   []string
	uploadErr error
	removeErr error
}

func newMockFileStorage() *mockFileStorage {
	return &mockFileStorage{files: map[string][]byte{}}
}

func (m *mockFileStorage) Upload(ctx context.Context, path string, file io.Reader, contentType string, token string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	m.files[path] = data
	return "https://project.supabase.co/storage/v1/object/public/documents/" + path, nil
}

func (m *mockFileStorage) Remove(ctx context.Context, paths []string, token string) error {
	m.removed = append(m.removed, paths...)
	for _, p := range paths {
		delete(m.files, p)
	}
	return m.removeErr
}

type mockAIBackend struct {
	answer    string
	queryErr  error
	ingestErr error
	deleteErr error
	ingested  []domain.IngestRequest
	deleted   []string
}

func (m *mockAIBackend) Query(ctx context.Context, userID, documentID, question string) (string, error) {
	return m.answer, m.queryErr
}

func (m *mockAIBackend) Ingest(ctx context.Context, req domain.IngestRequest) error {
	m.ingested = append(m.ingested, req)
	return m.ingestErr
}

func (m *mockAIBackend) DeleteDocument(ctx context.Context, userID, documentID string) error {
	m.deleted = append(m.deleted, documentID)
	return m.deleteErr
}

type mockPDFInspector struct {
	info *domain.PDFInfo
	err  error
}

func (m *mockPDFInspector) Inspect(data []byte) (*domain.PDFInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

type mockRoleRepository struct {
	roles map[string]domain.Role
	gets  int
}

func (m *mockRoleRepository) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	m.gets++
	if role, ok := m.roles[userID]; ok {
		return role, nil
	}
	return domain.RoleUser, nil
}

func (m *mockRoleRepository) ListRoles(ctx context.Context, userIDs []string) ([]*domain.UserRole, error) {
	var out []*domain.UserRole
	for id, role := range m.roles {
		if len(userIDs) > 0 && !slices.Contains(userIDs, id) {
			continue
		}
		out = append(out, &domain.UserRole{UserID: id, Role: role})
	}
	return out, nil
}

func (m *mockRoleRepository) UpsertRole(ctx context.Context, userID string, role domain.Role) (*domain.UserRole, error) {
	m.roles[userID] = role
	return &domain.UserRole{UserID: userID, Role: role}, nil
}
