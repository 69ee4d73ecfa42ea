package closing_test

import (
	"testing"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/closing"
	"pos-backend/internal/database"
	"pos-backend/internal/expense"
	"pos-backend/internal/ledger"
	"pos-backend/internal/models"
	"pos-backend/internal/order"
	"pos-backend/internal/poserr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtures struct {
	branch   models.Branch
	manager  models.User
	tea      models.Product
	customer models.Customer
	category models.ExpenseCategory
	actor    audit.Actor
}

func setupFixtures(t *testing.T) *fixtures {
	t.Helper()
	database.InitTest()

	f := &fixtures{}
	f.branch = models.Branch{Name: "Merkez"}
	require.NoError(t, database.DB.Create(&f.branch).Error)

	f.manager = models.User{
		Name:         "Fatma",
		Email:        "fatma@test.local",
		PasswordHash: "x",
		Role:         models.RoleManager,
		BranchID:     &f.branch.ID,
	}
	require.NoError(t, database.DB.Create(&f.manager).Error)

	f.tea = models.Product{Name: "Çay", Category: "içecek", Price: 1500, IsActive: true}
	require.NoError(t, database.DB.Create(&f.tea).Error)

	f.customer = models.Customer{BranchID: f.branch.ID, Name: "Mehmet Usta"}
	require.NoError(t, database.DB.Create(&f.customer).Error)

	f.category = models.ExpenseCategory{Name: "Mutfak"}
	require.NoError(t, database.DB.Create(&f.category).Error)

	f.actor = audit.Actor{UserID: f.manager.ID, UserName: f.manager.Name, BranchID: &f.branch.ID}
	return f
}

// quantity adet çaylı adisyon açıp verilen yöntemle öder.
func payOrder(t *testing.T, f *fixtures, quantity int, method models.PaymentMethod) *models.Order {
	t.Helper()

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.manager.ID}, f.actor)
	require.NoError(t, err)
	ord, err = order.AddItem(ord.ID, f.tea.ID, quantity, f.actor)
	require.NoError(t, err)
	paid, err := order.MarkPaid(ord.ID, method, ord.Total, f.actor)
	require.NoError(t, err)
	return paid
}

func TestCloseZeroVariance(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	payOrder(t, f, 2, models.PaymentMethodCash)  // 3000
	payOrder(t, f, 4, models.PaymentMethodCash)  // 6000
	payOrder(t, f, 10, models.PaymentMethodPOS)  // 15000

	closure, err := closing.Close(closing.CloseParams{
		BranchID: f.branch.ID,
		Date:     today,
		Declared: closing.Amounts{
			models.PaymentMethodCash: 9000,
			models.PaymentMethodPOS:  15000,
		},
	}, f.actor)
	require.NoError(t, err)
	assert.True(t, closure.Sealed)
	assert.NotNil(t, closure.SealedAt)
	assert.Equal(t, f.manager.Name, closure.SealedByName)

	expected := closing.DecodeAmounts(closure.Expected)
	assert.Equal(t, int64(9000), expected[models.PaymentMethodCash])
	assert.Equal(t, int64(15000), expected[models.PaymentMethodPOS])
	assert.Equal(t, int64(0), expected[models.PaymentMethodYemekSepeti])

	variance := closing.DecodeAmounts(closure.Variance)
	for _, m := range models.AllPaymentMethods() {
		assert.Equal(t, int64(0), variance[m], "yöntem %s", m)
	}
}

func TestCloseReportsVariance(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	payOrder(t, f, 2, models.PaymentMethodCash) // 3000

	closure, err := closing.Close(closing.CloseParams{
		BranchID: f.branch.ID,
		Date:     today,
		Declared: closing.Amounts{models.PaymentMethodCash: 2500},
		Notes:    "kasa eksik",
	}, f.actor)
	require.NoError(t, err)

	variance := closing.DecodeAmounts(closure.Variance)
	assert.Equal(t, int64(-500), variance[models.PaymentMethodCash])
	assert.Equal(t, "kasa eksik", closure.Notes)
}

func TestSealedDayRejectsPayment(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	// Kapanıştan önce açılmış ama ödenmemiş adisyon
	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.manager.ID}, f.actor)
	require.NoError(t, err)
	ord, err = order.AddItem(ord.ID, f.tea.ID, 2, f.actor)
	require.NoError(t, err)

	_, err = closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	// Mühürden sonra gelen ödeme reddedilir, adisyon açık kalır
	_, err = order.MarkPaid(ord.ID, models.PaymentMethodCash, 3000, f.actor)
	assert.True(t, poserr.Is(err, poserr.SealedPeriod))

	cur, err := order.Get(ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderOpen, cur.Status)

	// Mühürlü güne gider ve tahsilat da yazılamaz
	_, err = expense.Create(expense.CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.category.ID,
		Date:       today,
		Amount:     1000,
	}, f.actor)
	assert.True(t, poserr.Is(err, poserr.SealedPeriod))
}

func TestCloseTwice(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	_, err := closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	_, err = closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	assert.True(t, poserr.Is(err, poserr.AlreadyClosed))
}

// Hareketsiz gün de kapanabilir; beklenen üç yöntemde de sıfırdır.
func TestCloseQuietDay(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	closure, err := closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	expected := closing.DecodeAmounts(closure.Expected)
	for _, m := range models.AllPaymentMethods() {
		assert.Equal(t, int64(0), expected[m])
	}
}

func TestExpensesReduceExpected(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	payOrder(t, f, 10, models.PaymentMethodCash) // 15000

	pos := models.PaymentMethodPOS
	_, err := expense.Create(expense.CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.category.ID,
		Date:       today,
		Amount:     2000,
		Method:     &pos,
	}, f.actor)
	require.NoError(t, err)

	// Yöntemsiz gider nakitten düşer
	_, err = expense.Create(expense.CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.category.ID,
		Date:       today,
		Amount:     500,
	}, f.actor)
	require.NoError(t, err)

	closure, err := closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	expected := closing.DecodeAmounts(closure.Expected)
	assert.Equal(t, int64(14500), expected[models.PaymentMethodCash])
	assert.Equal(t, int64(-2000), expected[models.PaymentMethodPOS])
}

// Tahsilat, veresiyenin yazıldığı güne değil alındığı güne sayılır.
func TestSettlementCountsTowardSettlementDay(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.manager.ID}, f.actor)
	require.NoError(t, err)
	ord, err = order.AddItem(ord.ID, f.tea.ID, 2, f.actor)
	require.NoError(t, err)
	_, err = ledger.SignOrder(ord.ID, f.customer.ID, f.actor)
	require.NoError(t, err)

	require.NoError(t, ledger.Settle(f.customer.ID, []uint{ord.ID}, models.PaymentMethodCash, 3000, f.actor))

	closure, err := closing.Close(closing.CloseParams{
		BranchID: f.branch.ID,
		Date:     today,
		Declared: closing.Amounts{models.PaymentMethodCash: 3000},
	}, f.actor)
	require.NoError(t, err)

	expected := closing.DecodeAmounts(closure.Expected)
	assert.Equal(t, int64(3000), expected[models.PaymentMethodCash])

	variance := closing.DecodeAmounts(closure.Variance)
	assert.Equal(t, int64(0), variance[models.PaymentMethodCash])
}

// Yazılmış ama tahsil edilmemiş veresiye kasada değildir ve kapanışı engellemez.
func TestUnsettledCreditNotCounted(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.manager.ID}, f.actor)
	require.NoError(t, err)
	ord, err = order.AddItem(ord.ID, f.tea.ID, 2, f.actor)
	require.NoError(t, err)
	_, err = ledger.SignOrder(ord.ID, f.customer.ID, f.actor)
	require.NoError(t, err)

	closure, err := closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	expected := closing.DecodeAmounts(closure.Expected)
	assert.Equal(t, int64(0), expected[models.PaymentMethodCash])
}

func TestQueryReturnsNilWhenNotClosed(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	closure, err := closing.Query(f.branch.ID, today)
	require.NoError(t, err)
	assert.Nil(t, closure)

	_, err = closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	closure, err = closing.Query(f.branch.ID, today)
	require.NoError(t, err)
	require.NotNil(t, closure)
	assert.True(t, closure.Sealed)
}

// API'den "YYYY-MM-DD" olarak gelen tarih, ödeme anında damgalanan iş gününü
// bulmalı: toplama ödemeleri görür, mühür de sonraki ödemeleri keser.
func TestCloseWithParsedDateSeesPayments(t *testing.T) {
	f := setupFixtures(t)

	paid := payOrder(t, f, 2, models.PaymentMethodCash) // 3000

	date, err := models.ParseBusinessDay(paid.Date.Format("2006-01-02"))
	require.NoError(t, err)
	require.True(t, date.Equal(*paid.Date))

	closure, err := closing.Close(closing.CloseParams{
		BranchID: f.branch.ID,
		Date:     date,
		Declared: closing.Amounts{models.PaymentMethodCash: 3000},
	}, f.actor)
	require.NoError(t, err)

	expected := closing.DecodeAmounts(closure.Expected)
	assert.Equal(t, int64(3000), expected[models.PaymentMethodCash])

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.manager.ID}, f.actor)
	require.NoError(t, err)
	ord, err = order.AddItem(ord.ID, f.tea.ID, 1, f.actor)
	require.NoError(t, err)
	_, err = order.MarkPaid(ord.ID, models.PaymentMethodCash, ord.Total, f.actor)
	assert.True(t, poserr.Is(err, poserr.SealedPeriod))
}
