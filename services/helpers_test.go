package services

import (
	"time"

	"deals-dashboard/models"
)

func ptr(v float64) *float64 { return &v }

// deal builds a normalized record directly, bypassing the normalizer.
func deal(county string, status models.Status, price float64) *models.DealRecord {
	r := &models.DealRecord{
		County:     county,
		CountyKey:  CountyKey(county),
		CountyName: CountyDisplayName(county),
		Status:     status,
	}
	if price > 0 {
		r.ContractPrice = ptr(price)
		r.EffectiveContractPrice = ptr(price)
	}
	return r
}

func soldDeal(county, buyer string, price, gp float64) *models.DealRecord {
	r := deal(county, models.StatusSold, price)
	r.Buyer = buyer
	r.GrossProfit = ptr(gp)
	r.WholesalePrice = ptr(price - gp)
	return r
}

func dated(r *models.DealRecord, date string) *models.DealRecord {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	y := t.Year()
	r.Date, r.Year = &t, &y
	return r
}
