package table

import (
	"sync"
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
	branch models.Branch
	waiter models.User
	table  models.DiningTable
	tea    models.Product
	actor  audit.Actor
}

func setupFixtures(t *testing.T) *fixtures {
	t.Helper()
	database.InitTest()

	f := &fixtures{}
	f.branch = models.Branch{Name: "Merkez"}
	require.NoError(t, database.DB.Create(&f.branch).Error)

	f.waiter = models.User{
		Name:         "Ayşe",
		Email:        "ayse@test.local",
		PasswordHash: "x",
		Role:         models.RoleWaiter,
		BranchID:     &f.branch.ID,
	}
	require.NoError(t, database.DB.Create(&f.waiter).Error)

	f.table = models.DiningTable{BranchID: f.branch.ID, Number: 3, Status: models.TableAvailable}
	require.NoError(t, database.DB.Create(&f.table).Error)

	f.tea = models.Product{Name: "Çay", Category: "içecek", Price: 1500, IsActive: true}
	require.NoError(t, database.DB.Create(&f.tea).Error)

	f.actor = audit.Actor{UserID: f.waiter.ID, UserName: f.waiter.Name, BranchID: &f.branch.ID}
	return f
}

func (f *fixtures) reload(t *testing.T) models.DiningTable {
	t.Helper()
	var tbl models.DiningTable
	require.NoError(t, database.DB.First(&tbl, "id = ?", f.table.ID).Error)
	return tbl
}

// İki terminal aynı masayı aynı anda açmaya çalışırsa tam olarak biri kazanır.
func TestOpenConcurrentSingleWinner(t *testing.T) {
	f := setupFixtures(t)

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := Open(f.table.ID, f.waiter.ID, f.actor)
			results[i] = err
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, poserr.Is(err, poserr.AlreadyOccupied), "beklenmeyen hata: %v", err)
	}
	assert.Equal(t, 1, winners)

	tbl := f.reload(t)
	assert.Equal(t, models.TableOccupied, tbl.Status)
	assert.NotNil(t, tbl.CurrentOrderID)

	// Açık adisyon sayısı da bir olmalı
	var count int64
	require.NoError(t, database.DB.Model(&models.Order{}).
		Where("table_id = ? AND status = ?", f.table.ID, models.OrderOpen).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOpenUnknownTable(t *testing.T) {
	f := setupFixtures(t)

	_, err := Open(9999, f.waiter.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.UnknownTable))
}

func TestAttachTakeawayToTable(t *testing.T) {
	f := setupFixtures(t)

	ord, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)

	require.NoError(t, Attach(f.table.ID, ord.ID, f.actor))

	tbl := f.reload(t)
	assert.Equal(t, models.TableOccupied, tbl.Status)
	require.NotNil(t, tbl.CurrentOrderID)
	assert.Equal(t, ord.ID, *tbl.CurrentOrderID)

	cur, err := order.Get(ord.ID)
	require.NoError(t, err)
	require.NotNil(t, cur.TableID)
	assert.Equal(t, f.table.ID, *cur.TableID)

	// Dolu masaya ikinci bağlama
	other, err := order.Create(order.CreateParams{BranchID: f.branch.ID, AttendantID: f.waiter.ID}, f.actor)
	require.NoError(t, err)
	err = Attach(f.table.ID, other.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.AlreadyOccupied))
}

func TestAttachRejectsBoundOrder(t *testing.T) {
	f := setupFixtures(t)

	ord, err := Open(f.table.ID, f.waiter.ID, f.actor)
	require.NoError(t, err)

	second := models.DiningTable{BranchID: f.branch.ID, Number: 4, Status: models.TableAvailable}
	require.NoError(t, database.DB.Create(&second).Error)

	// Masalı adisyon başka masaya bağlanamaz
	err = Attach(second.ID, ord.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
}

func TestReleaseGuards(t *testing.T) {
	f := setupFixtures(t)

	// Boş masa boşaltılamaz
	err := Release(f.table.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))

	ord, err := Open(f.table.ID, f.waiter.ID, f.actor)
	require.NoError(t, err)

	// Açık adisyonlu masa elle boşaltılamaz
	err = Release(f.table.ID, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))

	_, err = order.Cancel(ord.ID, f.actor)
	require.NoError(t, err)

	// İptal masayı zaten boşalttı
	tbl := f.reload(t)
	assert.Equal(t, models.TableAvailable, tbl.Status)
	assert.Nil(t, tbl.CurrentOrderID)
}

func TestQuerySnapshot(t *testing.T) {
	f := setupFixtures(t)

	snap, err := Query(f.table.ID)
	require.NoError(t, err)
	assert.Nil(t, snap.CurrentOrder)

	ord, err := Open(f.table.ID, f.waiter.ID, f.actor)
	require.NoError(t, err)
	_, err = order.AddItem(ord.ID, f.tea.ID, 2, f.actor)
	require.NoError(t, err)

	snap, err = Query(f.table.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.CurrentOrder)
	assert.Equal(t, ord.ID, snap.CurrentOrder.ID)
	assert.Equal(t, int64(3000), snap.CurrentOrder.Total)
	assert.Len(t, snap.CurrentOrder.Items, 1)
}
