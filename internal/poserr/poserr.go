// Package poserr: çekirdek işlemlerin kapalı hata sınıflandırması.
// Her hata türlenmiş olarak çağırana döner; çekirdek içinde yutulmaz,
// otomatik retry yapılmaz.
package poserr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	InvalidState    Kind = "invalid_state"    // mevcut durumdan bu işlem yapılamaz
	AlreadyOccupied Kind = "already_occupied" // masada zaten açık adisyon var
	AlreadyClosed   Kind = "already_closed"   // gün sonu zaten mühürlü
	AlreadySettled  Kind = "already_settled"  // veresiye zaten tahsil edilmiş
	AmountMismatch  Kind = "amount_mismatch"  // tutar hesaplanan toplamla eşit değil
	UnknownCustomer Kind = "unknown_customer"
	UnknownOrder    Kind = "unknown_order"
	UnknownTable    Kind = "unknown_table"
	SealedPeriod    Kind = "sealed_period" // mühürlenmiş güne yazma denemesi
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf: errors.As üzerinden hatanın sınıfını çıkarır.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is: çağıranın belirli bir hata sınıfını denetlemesi için kısayol.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus: merkezi ErrorHandler'ın kullandığı durum kodu eşlemesi.
func HTTPStatus(kind Kind) int {
	switch kind {
	case UnknownCustomer, UnknownOrder, UnknownTable:
		return fiber.StatusNotFound
	case AmountMismatch:
		return fiber.StatusBadRequest
	default:
		// invalid_state, already_*, sealed_period: mevcut durumla çakışma
		return fiber.StatusConflict
	}
}
