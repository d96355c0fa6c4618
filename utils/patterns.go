package utils

import (
	"regexp"
	"time"
)

// Identifier shapes used across the pipeline. A contract document id
// (id_doc) is the contract OCID plus the context start date, e.g.
// "ocds-b3wdp1-MD-1539843614475-AC-1539843614531-2020-01-01T00:00:00Z".
var (
	CpidPattern         = regexp.MustCompile(`^ocds-[a-z0-9]{6}-[A-Z]{2}-[0-9]{13}$`)
	OcidContractPattern = regexp.MustCompile(`^ocds-[a-z0-9]{6}-[A-Z]{2}-[0-9]{13}-AC-[0-9]{13}$`)
	OcidTenderPattern   = regexp.MustCompile(`^ocds-[a-z0-9]{6}-[A-Z]{2}-[0-9]{13}-[A-Z]{2}-[0-9]{13}$`)
	ContractIDPattern   = regexp.MustCompile(`^ocds-[a-z0-9]{6}-[A-Z]{2}-[0-9]{13}-AC-[0-9]{13}-[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}Z$`)
	DatePattern         = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}Z$`)

	cpidPrefix = regexp.MustCompile(`^ocds-[a-z0-9]{6}-[A-Z]{2}-[0-9]{13}`)
	ocidPrefix = regexp.MustCompile(`^ocds-[a-z0-9]{6}-[A-Z]{2}-[0-9]{13}-AC-[0-9]{13}`)
)

// ContractID derives the id_doc all outbox tables are keyed by.
func ContractID(ocid, startDate string) string {
	return ocid + "-" + startDate
}

// ParseContractID extracts the cpid and contract ocid back out of an
// id_doc. ok is false when the id does not match the structural pattern.
func ParseContractID(idDoc string) (cpid, ocid string, ok bool) {
	if !ContractIDPattern.MatchString(idDoc) {
		return "", "", false
	}

	return cpidPrefix.FindString(idDoc), ocidPrefix.FindString(idDoc), true
}

// FormatDate renders a timestamp the way the platform exchanges dates:
// UTC, second precision, trailing "Z".
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + "Z"
}
