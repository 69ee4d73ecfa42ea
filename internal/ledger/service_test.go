package ledger

import (
	"testing"

	"pos-backend/internal/audit"
	"pos-backend/internal/database"
	"pos-backend/internal/models"
	"pos-backend/internal/order"
	"pos-backend/internal/poserr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtures struct {
	branch   models.Branch
	waiter   models.User
	table    models.DiningTable
	tea      models.Product
	customer models.Customer
	actor    audit.Actor
}

func setupFixtures(t *testing.T) *fixtures {
	t.Helper()
	database.InitTest()

	f := &fixtures{}
	f.branch = models.Branch{Name: "Merkez"}
	require.NoError(t, database.DB.Create(&f.branch).Error)

	f.waiter = models.User{
		Name:         "Ali",
		Email:        "ali@test.local",
		PasswordHash: "x",
		Role:         models.RoleWaiter,
		BranchID:     &f.branch.ID,
	}
	require.NoError(t, database.DB.Create(&f.waiter).Error)

	f.table = models.DiningTable{BranchID: f.branch.ID, Number: 7, Status: models.TableAvailable}
	require.NoError(t, database.DB.Create(&f.table).Error)

	f.tea = models.Product{Name: "Çay", Category: "içecek", Price: 1500, IsActive: true}
	require.NoError(t, database.DB.Create(&f.tea).Error)

	f.customer = models.Customer{BranchID: f.branch.ID, Name: "Mehmet Usta"}
	require.NoError(t, database.DB.Create(&f.customer).Error)

	f.actor = audit.Actor{UserID: f.waiter.ID, UserName: f.waiter.Name, BranchID: &f.branch.ID}
	return f
}

func (f *fixtures) customerBalance(t *testing.T) int64 {
	t.Helper()
	var cust models.Customer
	require.NoError(t, database.DB.First(&cust, "id = ?", f.customer.ID).Error)
	return cust.Balance
}

// Masalı adisyon 2 çay ile müşteriye yazılır: adisyon signed olur,
// bakiye 3000 kuruş artar, masa boşalır.
func newSignedOrder(t *testing.T, f *fixtures) *models.Order {
	t.Helper()

	ord, err := order.Create(order.CreateParams{TableID: &f.table.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)
	ord, err = order.AddItem(ord.ID, f.tea.ID, 2, f.actor)
	require.NoError(t, err)

	signed, err := SignOrder(ord.ID, f.customer.ID, f.actor)
	require.NoError(t, err)
	return signed
}

func TestSignOrder(t *testing.T) {
	f := setupFixtures(t)

	signed := newSignedOrder(t, f)
	assert.Equal(t, models.OrderSigned, signed.Status)
	require.NotNil(t, signed.CustomerID)
	assert.Equal(t, f.customer.ID, *signed.CustomerID)
	assert.NotNil(t, signed.SignedAt)
	assert.Nil(t, signed.SettledAt)

	assert.Equal(t, int64(3000), f.customerBalance(t))

	var tbl models.DiningTable
	require.NoError(t, database.DB.First(&tbl, "id = ?", f.table.ID).Error)
	assert.Equal(t, models.TableAvailable, tbl.Status)
	assert.Nil(t, tbl.CurrentOrderID)
}

func TestSignRejectsNonOpenOrder(t *testing.T) {
	f := setupFixtures(t)

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)
	ord, err = order.AddItem(ord.ID, f.tea.ID, 1, f.actor)
	require.NoError(t, err)
	_, err = order.MarkPaid(ord.ID, models.PaymentMethodCash, 1500, f.actor)
	require.NoError(t, err)

	_, err = SignOrder(ord.ID, f.customer.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
	assert.Equal(t, int64(0), f.customerBalance(t))
}

func TestSignUnknownCustomer(t *testing.T) {
	f := setupFixtures(t)

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)

	_, err = SignOrder(ord.ID, 9999, f.actor)
	assert.True(t, poserr.Is(err, poserr.UnknownCustomer))
}

func TestSignRejectsOtherBranchCustomer(t *testing.T) {
	f := setupFixtures(t)

	other := models.Branch{Name: "Şube 2"}
	require.NoError(t, database.DB.Create(&other).Error)
	stranger := models.Customer{BranchID: other.ID, Name: "Yabancı"}
	require.NoError(t, database.DB.Create(&stranger).Error)

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)

	_, err = SignOrder(ord.ID, stranger.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
}

func TestSettle(t *testing.T) {
	f := setupFixtures(t)

	first := newSignedOrder(t, f)
	second := newSignedOrder(t, f)
	assert.Equal(t, int64(6000), f.customerBalance(t))

	err := Settle(f.customer.ID, []uint{first.ID, second.ID}, models.PaymentMethodCash, 6000, f.actor)
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.customerBalance(t))

	for _, id := range []uint{first.ID, second.ID} {
		cur, err := order.Get(id)
		require.NoError(t, err)
		// Tahsilat durum değiştirmez, damga basar
		assert.Equal(t, models.OrderSigned, cur.Status)
		require.NotNil(t, cur.SettledAt)
		require.NotNil(t, cur.SettleMethod)
		assert.Equal(t, models.PaymentMethodCash, *cur.SettleMethod)
	}
}

func TestSettleAmountMismatch(t *testing.T) {
	f := setupFixtures(t)

	signed := newSignedOrder(t, f)

	err := Settle(f.customer.ID, []uint{signed.ID}, models.PaymentMethodCash, 2999, f.actor)
	assert.True(t, poserr.Is(err, poserr.AmountMismatch))
	assert.Equal(t, int64(3000), f.customerBalance(t))
}

func TestSettleAlreadySettled(t *testing.T) {
	f := setupFixtures(t)

	signed := newSignedOrder(t, f)
	require.NoError(t, Settle(f.customer.ID, []uint{signed.ID}, models.PaymentMethodCash, 3000, f.actor))

	// İkinci tahsilat reddedilir, bakiye değişmez
	err := Settle(f.customer.ID, []uint{signed.ID}, models.PaymentMethodCash, 3000, f.actor)
	assert.True(t, poserr.Is(err, poserr.AlreadySettled))
	assert.Equal(t, int64(0), f.customerBalance(t))
}

func TestSettleRejectsForeignOrders(t *testing.T) {
	f := setupFixtures(t)

	signed := newSignedOrder(t, f)

	other := models.Customer{BranchID: f.branch.ID, Name: "Başka Cari"}
	require.NoError(t, database.DB.Create(&other).Error)

	err := Settle(other.ID, []uint{signed.ID}, models.PaymentMethodCash, 3000, f.actor)
	assert.True(t, poserr.Is(err, poserr.UnknownOrder))

	err = Settle(f.customer.ID, nil, models.PaymentMethodCash, 0, f.actor)
	assert.True(t, poserr.Is(err, poserr.UnknownOrder))
}

func TestOutstandingExcludesSettled(t *testing.T) {
	f := setupFixtures(t)

	first := newSignedOrder(t, f)
	second := newSignedOrder(t, f)

	pending, err := Outstanding(f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, Settle(f.customer.ID, []uint{first.ID}, models.PaymentMethodPOS, 3000, f.actor))

	pending, err = Outstanding(f.customer.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, int64(3000), f.customerBalance(t))
}

// Yöntem doğrulaması handler'a bırakılmaz; servis bilinmeyen etiketi reddeder.
func TestSettleRejectsInvalidMethod(t *testing.T) {
	f := setupFixtures(t)
	signed := newSignedOrder(t, f)

	err := Settle(f.customer.ID, []uint{signed.ID}, models.PaymentMethod("havale"), 3000, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
	assert.Equal(t, int64(3000), f.customerBalance(t))
}
