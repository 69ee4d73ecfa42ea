// Package locks: entity başına süreç içi kilitler. Birden fazla terminalin
// aynı masa/adisyon/müşteri üstünde yarışmasını serileştirir.
//
// Birden fazla kapsam alınacaksa edinim sırası sabittir:
// masa → adisyon → müşteri → gün (period). Bu sıra bozulmadığı sürece
// eşzamanlı veresiye yazma ve gün sonu kapanışı kilitlenmeye düşmez.
package locks

import (
	"fmt"
	"sync"
	"time"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Keyed: anahtar başına mutex. Kullanılmayan anahtarlar haritada tutulmaz.
type Keyed struct {
	mu   sync.Mutex
	held map[string]*entry
}

func New() *Keyed {
	return &Keyed{held: make(map[string]*entry)}
}

func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	e, ok := k.held[key]
	if !ok {
		e = &entry{}
		k.held[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.held[key]
	if !ok {
		k.mu.Unlock()
		panic(fmt.Sprintf("locks: tutulmayan anahtar bırakıldı: %s", key))
	}
	e.refs--
	if e.refs == 0 {
		delete(k.held, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

var global = New()

func Lock(key string)   { global.Lock(key) }
func Unlock(key string) { global.Unlock(key) }

// Anahtar üreticileri. Kapsamlar ayrık ad alanlarındadır.

func Table(id uint) string    { return fmt.Sprintf("table:%d", id) }
func Order(id uint) string    { return fmt.Sprintf("order:%d", id) }
func Customer(id uint) string { return fmt.Sprintf("customer:%d", id) }

// Period: gün sonu kapsamı. Close bu kilidi toplama ve mühürleme boyunca tutar;
// aynı güne nakit yazan her işlem (ödeme, tahsilat, gider) aynı anahtarı alır.
func Period(branchID uint, day time.Time) string {
	return fmt.Sprintf("period:%d:%s", branchID, day.Format("2006-01-02"))
}
