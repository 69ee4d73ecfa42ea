package models

import "time"

// Tüm tutarlar kuruş cinsinden tam sayıdır (int64).
// Ondalık tutar hiçbir yerde saklanmaz.

type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"        // nakit
	PaymentMethodPOS         PaymentMethod = "pos"         // pos / kart
	PaymentMethodYemekSepeti PaymentMethod = "yemeksepeti" // yemek sepeti
)

// AllPaymentMethods: gün sonu raporlarında sabit sırayla dolaşmak için
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodCash, PaymentMethodPOS, PaymentMethodYemekSepeti}
}

// Valid: bilinmeyen yöntem etiketlerini sınırda reddetmek için
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodPOS, PaymentMethodYemekSepeti:
		return true
	}
	return false
}

// BusinessDay: bir zamanı ait olduğu iş gününe (yerel saat, gece yarısı) indirger.
// Adisyon ve gider tarihleri hep bu biçimde saklanır, gün sonu da aynı anahtarla
// kapanır. Girdi hangi dilimde olursa olsun önce yerel saate çevrilir; aksi halde
// UTC'den gelen bir tarih ile time.Now() aynı takvim günü için iki farklı an üretir.
func BusinessDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// ParseBusinessDay: API'den gelen "YYYY-MM-DD" dizesini yerel dilimde iş gününe
// çevirir. Tarih alan her handler bunu kullanır; düz time.Parse UTC gece yarısı
// ürettiği için BusinessDay ile aynı anahtara denk gelmez.
func ParseBusinessDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return BusinessDay(t), nil
}
