package migration

import "go.mongodb.org/mongo-driver/bson/primitive"

// Legacy document shapes from the hosted platform's Mongo dumps. Field names
// match the dump exactly; conversion happens in the migrator.

type LegacyItem struct {
	ID          primitive.ObjectID `bson:"_id"`
	Slug        string             `bson:"slug"`
	CampaignID  string             `bson:"campaignId,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Category    string             `bson:"category,omitempty"`
	Weight      float64            `bson:"weight,omitempty"`
}

type LegacyCoins struct {
	Copper   int64 `bson:"cp,omitempty"`
	Silver   int64 `bson:"sp,omitempty"`
	Gold     int64 `bson:"gp,omitempty"`
	Platinum int64 `bson:"pp,omitempty"`
}

type LegacyMember struct {
	ID         primitive.ObjectID `bson:"_id"`
	CampaignID string             `bson:"campaignId"`
	UserID     string             `bson:"userId"`
	Role       string             `bson:"role,omitempty"`
	Coins      LegacyCoins        `bson:"coins"`
}

type LegacyHolding struct {
	ID         primitive.ObjectID `bson:"_id"`
	CampaignID string             `bson:"campaignId"`
	UserID     string             `bson:"userId"`
	ItemSlug   string             `bson:"itemSlug"`
	Quantity   int64              `bson:"qty"`
}
