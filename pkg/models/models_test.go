package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductNormalizesTagsImagesAndRefs(t *testing.T) {
	raw := `[
		{"_id":"p1","name":"Tea","tags":"green, loose ,,organic","images":["a.png"],"category":"c1","subcategory":{"_id":"s1","name":"Green"}},
		{"_id":"p2","name":"Mug","tags":["kitchen"],"images":[{"url":"b.png","public_id":"x"}],"category":{"_id":"c2","name":"Home"}},
		{"_id":"p3","name":"Bag","tags":null,"images":"c.png","discountPrice":80,"originalPrice":100}
	]`
	var ps []Product
	require.NoError(t, json.Unmarshal([]byte(raw), &ps))

	assert.Equal(t, Tags{"green", "loose", "organic"}, ps[0].Tags)
	assert.Equal(t, Images{{URL: "a.png"}}, ps[0].Images)
	assert.Equal(t, Ref{ID: "c1"}, ps[0].Category)
	assert.Equal(t, "Green", ps[0].Subcategory.Label())
	assert.Equal(t, "c1", ps[0].Category.Label())

	assert.Equal(t, Tags{"kitchen"}, ps[1].Tags)
	assert.Equal(t, Images{{URL: "b.png", PublicID: "x"}}, ps[1].Images)

	assert.Nil(t, ps[2].Tags)
	assert.Equal(t, Images{{URL: "c.png"}}, ps[2].Images)
	assert.Equal(t, 80.0, ps[2].Price())
	assert.Equal(t, 0.0, ps[0].Price())
}

func TestStatusCanonicalization(t *testing.T) {
	st, ok := ParseStatus("Cancelled")
	assert.True(t, ok)
	assert.Equal(t, StatusCanceled, st)

	st, ok = ParseStatus("out for delivery")
	assert.True(t, ok)
	assert.Equal(t, StatusOutForDelivery, st)

	st, ok = ParseStatus("Pending")
	assert.True(t, ok)
	assert.Equal(t, StatusPending, st)

	st, ok = ParseStatus("Shipped")
	assert.False(t, ok)
	assert.Equal(t, Status("Shipped"), st)
	assert.False(t, st.Known())

	assert.True(t, StatusRefundFailed.IsRefund())
	assert.False(t, StatusDelivered.IsRefund())
}

func TestOrderDecode(t *testing.T) {
	raw := `{"_id":"60f1a2b3c4d5e6f7a8b9c0d1","status":"Cancelled","totalPrice":1234.5,
		"user":{"name":"Asha","phoneNumber":9876543210},
		"cart":[{"_id":"p1","qty":2,"discountPrice":10},{"_id":"p2","qty":1,"discountPrice":5}],
		"createdAt":"2025-06-07T10:00:00.000Z","paidAt":""}`
	var o Order
	require.NoError(t, json.Unmarshal([]byte(raw), &o))

	assert.Equal(t, StatusCanceled, o.Status)
	assert.Equal(t, "9876543210", o.User.Phone.String())
	assert.Equal(t, 3, o.ItemCount())
	assert.True(t, o.PaidAt.IsZero())
	assert.Equal(t, time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC), o.CreatedAt.UTC())
	assert.Equal(t, "#b9c0d1", ShortID(o.ID))
	assert.Equal(t, "#abc", ShortID("abc"))
}
