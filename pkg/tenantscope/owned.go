package tenantscope

// Owned is implemented by every tenant-scoped row.
type Owned interface {
	OwnerID() int64
	SetOwnerID(id int64)
}

// Owner is embedded in row types to implement Owned.
type Owner struct {
	TenantID int64 `json:"tenant_id"`
}

func (o *Owner) OwnerID() int64 { return o.TenantID }

func (o *Owner) SetOwnerID(id int64) { o.TenantID = id }
