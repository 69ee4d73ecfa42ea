package order

import (
	"testing"

	"pos-backend/internal/audit"
	"pos-backend/internal/database"
	"pos-backend/internal/models"
	"pos-backend/internal/poserr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtures struct {
	branch models.Branch
	waiter models.User
	table  models.DiningTable
	tea    models.Product
	kebab  models.Product
	actor  audit.Actor
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

	f.table = models.DiningTable{BranchID: f.branch.ID, Number: 5, Status: models.TableAvailable}
	require.NoError(t, database.DB.Create(&f.table).Error)

	f.tea = models.Product{Name: "Çay", Category: "içecek", Price: 1500, IsActive: true}
	require.NoError(t, database.DB.Create(&f.tea).Error)

	f.kebab = models.Product{Name: "Adana Kebap", Category: "ana yemek", Price: 25000, IsActive: true}
	require.NoError(t, database.DB.Create(&f.kebab).Error)

	f.actor = audit.Actor{UserID: f.waiter.ID, UserName: f.waiter.Name, BranchID: &f.branch.ID}
	return f
}

func (f *fixtures) reloadTable(t *testing.T) models.DiningTable {
	t.Helper()
	var tbl models.DiningTable
	require.NoError(t, database.DB.First(&tbl, "id = ?", f.table.ID).Error)
	return tbl
}

func TestCreateOnTableOccupies(t *testing.T) {
	f := setupFixtures(t)

	ord, err := Create(CreateParams{TableID: &f.table.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderOpen, ord.Status)
	assert.Equal(t, f.branch.ID, ord.BranchID)
	assert.NotEmpty(t, ord.Number)

	tbl := f.reloadTable(t)
	assert.Equal(t, models.TableOccupied, tbl.Status)
	require.NotNil(t, tbl.CurrentOrderID)
	assert.Equal(t, ord.ID, *tbl.CurrentOrderID)

	// Aynı masaya ikinci açılış
	_, err = Create(CreateParams{TableID: &f.table.ID, AttendantID: f.waiter.ID}, f.actor)
	assert.True(t, poserr.Is(err, poserr.AlreadyOccupied))
}

func TestCreateTakeaway(t *testing.T) {
	f := setupFixtures(t)

	ord, err := Create(CreateParams{BranchID: f.branch.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)
	assert.Nil(t, ord.TableID)
	assert.Equal(t, models.OrderOpen, ord.Status)
}

func TestItemsRecomputeTotal(t *testing.T) {
	f := setupFixtures(t)

	ord, err := Create(CreateParams{TableID: &f.table.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)

	ord, err = AddItem(ord.ID, f.tea.ID, 2, f.actor)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), ord.Total)

	ord, err = AddItem(ord.ID, f.kebab.ID, 1, f.actor)
	require.NoError(t, err)
	assert.Equal(t, int64(28000), ord.Total)
	require.Len(t, ord.Items, 2)

	// Birim fiyat anlık görüntü: liste fiyatı değişse de kalem etkilenmez
	require.NoError(t, database.DB.Model(&models.Product{}).Where("id = ?", f.tea.ID).Update("price", 9999).Error)

	var teaItem models.OrderItem
	for _, it := range ord.Items {
		if it.ProductID == f.tea.ID {
			teaItem = it
		}
	}
	require.NotZero(t, teaItem.ID)

	ord, err = UpdateItem(ord.ID, teaItem.ID, 4, f.actor)
	require.NoError(t, err)
	assert.Equal(t, int64(6000+25000), ord.Total)

	ord, err = RemoveItem(ord.ID, teaItem.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), ord.Total)
	assert.Len(t, ord.Items, 1)
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	f := setupFixtures(t)

	require.NoError(t, database.DB.Model(&models.Product{}).Where("id = ?", f.tea.ID).Update("is_active", false).Error)

	ord, err := Create(CreateParams{BranchID: f.branch.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)

	_, err = AddItem(ord.ID, f.tea.ID, 1, f.actor)
	assert.Error(t, err)
}

func TestMarkPaidAmountMismatch(t *testing.T) {
	f := setupFixtures(t)

	ord, err := Create(CreateParams{TableID: &f.table.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)
	ord, err = AddItem(ord.ID, f.tea.ID, 2, f.actor)
	require.NoError(t, err)

	_, err = MarkPaid(ord.ID, models.PaymentMethodCash, 2999, f.actor)
	assert.True(t, poserr.Is(err, poserr.AmountMismatch))

	// Başarısız ödeme hiçbir şeyi değiştirmez
	cur, err := Get(ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderOpen, cur.Status)
	assert.Equal(t, models.TableOccupied, f.reloadTable(t).Status)
}

func TestMarkPaidReleasesTable(t *testing.T) {
	f := setupFixtures(t)

	ord, err := Create(CreateParams{TableID: &f.table.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)
	ord, err = AddItem(ord.ID, f.kebab.ID, 2, f.actor)
	require.NoError(t, err)

	paid, err := MarkPaid(ord.ID, models.PaymentMethodPOS, 50000, f.actor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, paid.Status)
	require.NotNil(t, paid.Method)
	assert.Equal(t, models.PaymentMethodPOS, *paid.Method)
	require.NotNil(t, paid.Date)
	assert.NotNil(t, paid.PaidAt)

	tbl := f.reloadTable(t)
	assert.Equal(t, models.TableAvailable, tbl.Status)
	assert.Nil(t, tbl.CurrentOrderID)
	assert.Nil(t, tbl.ServerID)

	// Ödenen adisyonda başka geçiş yok
	_, err = MarkPaid(ord.ID, models.PaymentMethodCash, 50000, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
	_, err = Cancel(ord.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
	_, err = AddItem(ord.ID, f.tea.ID, 1, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
}

func TestCancelReleasesTable(t *testing.T) {
	f := setupFixtures(t)

	ord, err := Create(CreateParams{TableID: &f.table.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)

	cancelled, err := Cancel(ord.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	tbl := f.reloadTable(t)
	assert.Equal(t, models.TableAvailable, tbl.Status)
	assert.Nil(t, tbl.CurrentOrderID)
}

func TestGetUnknownOrder(t *testing.T) {
	setupFixtures(t)

	_, err := Get(9999)
	assert.True(t, poserr.Is(err, poserr.UnknownOrder))
}
