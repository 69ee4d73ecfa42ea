package expense

import (
	"sync"
	"testing"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/closing"
	"pos-backend/internal/database"
	"pos-backend/internal/models"
	"pos-backend/internal/poserr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtures struct {
	branch   models.Branch
	manager  models.User
	mutfak   models.ExpenseCategory
	temizlik models.ExpenseCategory
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

	f.mutfak = models.ExpenseCategory{Name: "Mutfak"}
	require.NoError(t, database.DB.Create(&f.mutfak).Error)
	f.temizlik = models.ExpenseCategory{Name: "Temizlik"}
	require.NoError(t, database.DB.Create(&f.temizlik).Error)

	f.actor = audit.Actor{UserID: f.manager.ID, UserName: f.manager.Name, BranchID: &f.branch.ID}
	return f
}

func lastAuditEntry(t *testing.T, action models.AuditAction) *models.AuditLog {
	t.Helper()
	var entry models.AuditLog
	err := database.DB.Where("entity_type = ? AND action = ?", "expense", action).
		Order("id DESC").First(&entry).Error
	require.NoError(t, err)
	return &entry
}

func TestCreateExpense(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	pos := models.PaymentMethodPOS
	exp, err := Create(CreateParams{
		BranchID:    f.branch.ID,
		CategoryID:  f.mutfak.ID,
		Date:        today,
		Amount:      2500,
		Method:      &pos,
		Description: "bulaşık deterjanı",
	}, f.actor)
	require.NoError(t, err)

	assert.Equal(t, int64(2500), exp.Amount)
	assert.True(t, exp.Date.Equal(today))
	require.NotNil(t, exp.Method)
	assert.Equal(t, pos, *exp.Method)
	assert.Equal(t, "Mutfak", exp.Category.Name)

	entry := lastAuditEntry(t, models.AuditActionCreate)
	assert.Equal(t, exp.ID, entry.EntityID)
	assert.NotEmpty(t, entry.AfterData)
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	f := setupFixtures(t)

	_, err := Create(CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: 9999,
		Date:       models.BusinessDay(time.Now()),
		Amount:     1000,
	}, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
}

func TestCreateRejectsSealedDay(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	_, err := closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	_, err = Create(CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.mutfak.ID,
		Date:       today,
		Amount:     1000,
	}, f.actor)
	assert.True(t, poserr.Is(err, poserr.SealedPeriod))
}

func TestCorrectUpdatesFields(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	pos := models.PaymentMethodPOS
	exp, err := Create(CreateParams{
		BranchID:    f.branch.ID,
		CategoryID:  f.mutfak.ID,
		Date:        today,
		Amount:      2500,
		Method:      &pos,
		Description: "bulaşık deterjanı",
	}, f.actor)
	require.NoError(t, err)

	newAmount := int64(3000)
	newDesc := "deterjan ve sünger"
	fixed, err := Correct(exp.ID, CorrectParams{
		CategoryID:  &f.temizlik.ID,
		Amount:      &newAmount,
		ClearMethod: true,
		Description: &newDesc,
	}, f.actor)
	require.NoError(t, err)

	assert.Equal(t, int64(3000), fixed.Amount)
	assert.Equal(t, "Temizlik", fixed.Category.Name)
	assert.Nil(t, fixed.Method)
	assert.Equal(t, newDesc, fixed.Description)

	// Düzeltme öncesi/sonrası halleriyle audit'e işlenir
	entry := lastAuditEntry(t, models.AuditActionUpdate)
	assert.Equal(t, exp.ID, entry.EntityID)
	assert.NotEmpty(t, entry.BeforeData)
	assert.NotEmpty(t, entry.AfterData)
}

// Gün değişikliği: her iki gün de açıksa gider yeni güne taşınır.
func TestCorrectMovesAcrossDays(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())
	yesterday := today.AddDate(0, 0, -1)

	exp, err := Create(CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.mutfak.ID,
		Date:       yesterday,
		Amount:     1000,
	}, f.actor)
	require.NoError(t, err)

	fixed, err := Correct(exp.ID, CorrectParams{Date: &today}, f.actor)
	require.NoError(t, err)
	assert.True(t, fixed.Date.Equal(today))
}

func TestCorrectRejectsSealedDay(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())

	exp, err := Create(CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.mutfak.ID,
		Date:       today,
		Amount:     1000,
	}, f.actor)
	require.NoError(t, err)

	_, err = closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	newAmount := int64(2000)
	_, err = Correct(exp.ID, CorrectParams{Amount: &newAmount}, f.actor)
	assert.True(t, poserr.Is(err, poserr.SealedPeriod))

	var cur models.Expense
	require.NoError(t, database.DB.First(&cur, "id = ?", exp.ID).Error)
	assert.Equal(t, int64(1000), cur.Amount)
}

// Hedef gün mühürlüyse taşıma da reddedilir.
func TestCorrectRejectsSealedTargetDay(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())
	yesterday := today.AddDate(0, 0, -1)

	exp, err := Create(CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.mutfak.ID,
		Date:       yesterday,
		Amount:     1000,
	}, f.actor)
	require.NoError(t, err)

	_, err = closing.Close(closing.CloseParams{BranchID: f.branch.ID, Date: today}, f.actor)
	require.NoError(t, err)

	_, err = Correct(exp.ID, CorrectParams{Date: &today}, f.actor)
	assert.True(t, poserr.Is(err, poserr.SealedPeriod))

	var cur models.Expense
	require.NoError(t, database.DB.First(&cur, "id = ?", exp.ID).Error)
	assert.True(t, cur.Date.Equal(yesterday))
}

func TestCorrectUnknownExpense(t *testing.T) {
	f := setupFixtures(t)

	newAmount := int64(2000)
	_, err := Correct(9999, CorrectParams{Amount: &newAmount}, f.actor)
	assert.True(t, poserr.Is(err, poserr.InvalidState))
}

// Aynı gider üzerinde eşzamanlı gün taşımaları: kilitler taze okunan güne
// göre alınır, kayıt hiçbir ara durumda tutarsız güne düşmez.
func TestCorrectConcurrentDayMoves(t *testing.T) {
	f := setupFixtures(t)
	today := models.BusinessDay(time.Now())
	yesterday := today.AddDate(0, 0, -1)

	exp, err := Create(CreateParams{
		BranchID:   f.branch.ID,
		CategoryID: f.mutfak.ID,
		Date:       yesterday,
		Amount:     1000,
	}, f.actor)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		day := today
		if i%2 == 1 {
			day = yesterday
		}
		wg.Add(1)
		go func(d time.Time) {
			defer wg.Done()
			_, err := Correct(exp.ID, CorrectParams{Date: &d}, f.actor)
			assert.NoError(t, err)
		}(day)
	}
	wg.Wait()

	var cur models.Expense
	require.NoError(t, database.DB.First(&cur, "id = ?", exp.ID).Error)
	got := models.BusinessDay(cur.Date)
	assert.True(t, got.Equal(today) || got.Equal(yesterday))
}
