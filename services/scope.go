package services

// StoreScope names the tenant a management operation acts for. It is
// resolved from the authenticated owner and passed explicitly.
type StoreScope struct {
	StoreID uint
}
