package entities

// DefaultFamilyRoles are seeded by `lineage init`.
var DefaultFamilyRoles = []FamilyRole{
	{Code: "father", Name: "Father", DisplayOrder: 10},
	{Code: "mother", Name: "Mother", DisplayOrder: 20},
	{Code: "husband", Name: "Husband", DisplayOrder: 30},
	{Code: "wife", Name: "Wife", DisplayOrder: 40},
	{Code: "spouse", Name: "Spouse", DisplayOrder: 50},
	{Code: "guardian", Name: "Guardian", DisplayOrder: 60},
	{Code: "grandparent", Name: "Grandparent", DisplayOrder: 70},
	{Code: "child", Name: "Child", DisplayOrder: 80},
	{Code: "sibling", Name: "Sibling", DisplayOrder: 90},
}

// DefaultRelationshipTypes are seeded by `lineage init`.
var DefaultRelationshipTypes = []RelationshipType{
	{Code: "dating", Label: "Dating", Order: 10},
	{Code: "engaged", Label: "Engaged", Order: 20},
	{Code: "cohabiting", Label: "Cohabiting", Order: 30},
	{Code: "partner", Label: "Partner", Order: 40},
	{Code: "friend", Label: "Friend", Order: 50},
}

// DefaultReferenceItems seeds the categories the core looks up by name.
var DefaultReferenceItems = []ReferenceItem{
	{Category: ReferenceGender, Code: "M", Label: "Male", DisplayOrder: 10},
	{Category: ReferenceGender, Code: "F", Label: "Female", DisplayOrder: 20},
	{Category: ReferenceMarriageEndReason, Code: "divorce", Label: "Divorce", DisplayOrder: 10},
	{Category: ReferenceMarriageEndReason, Code: "death", Label: "Death of spouse", DisplayOrder: 20},
	{Category: ReferenceMarriageEndReason, Code: "annulment", Label: "Annulment", DisplayOrder: 30},
}
