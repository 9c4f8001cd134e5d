package entity

import "time"

// Chiavi di impostazione note (tabella tenant_settings, key-value per struttura).
const (
	SettingStampDutyChargeCustomer = "invoice.stamp_duty.charge_customer"
	SettingTransmissionFormat      = "invoice.transmission.format"
	SettingDefaultPrefix           = "invoice.numbering.prefix"
)

// TenantSetting è una impostazione key-value di una struttura.
type TenantSetting struct {
	ID          string
	StructureID string
	Key         string
	Value       string
	UpdatedAt   time.Time
}
