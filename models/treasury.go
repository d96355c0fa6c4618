package models

// RegisterPayload is the document submitted to the treasury
// registration endpoint. Field names are fixed by the treasury API.
type RegisterPayload struct {
	Header  PayloadHeader `json:"header" validate:"required"`
	Benef   []Benef       `json:"benef" validate:"required,min=1,dive"`
	Details []Detail      `json:"details" validate:"required,min=1,dive"`
}

type PayloadHeader struct {
	IDDok string `json:"id_dok" validate:"required,contract_id"`
	NrDok string `json:"nr_dok" validate:"required,ocid_contract"`
	DaDok string `json:"da_dok" validate:"required,iso_date"`

	Suma  float64 `json:"suma" validate:"required,gt=0"`
	KdVal string  `json:"kd_val" validate:"required,len=3"`

	PkdFisk string `json:"pkd_fisk" validate:"required"`
	PkdSdiv string `json:"pkd_sdiv,omitempty"`
	Pname   string `json:"pname" validate:"required"`

	BkdFisk string `json:"bkd_fisk" validate:"required"`
	BkdSdiv string `json:"bkd_sdiv,omitempty"`
	Bname   string `json:"bname" validate:"required"`

	Desc string `json:"desc" validate:"required"`

	RegNom  string `json:"reg_nom,omitempty"`
	RegDate string `json:"reg_date,omitempty"`

	AchizNom  string `json:"achiz_nom" validate:"required,ocid_tender"`
	AchizDate string `json:"achiz_date" validate:"required,iso_date"`

	// Advance payment percentage; present only when an advance
	// transaction smaller than the contract total exists.
	Avans *float64 `json:"avans,omitempty" validate:"omitempty,gt=0,lt=100"`

	DaExpire string `json:"da_expire" validate:"required,iso_date"`
	CLink    string `json:"c_link" validate:"required,url"`
}

// Benef is one supplier bank account row.
type Benef struct {
	IDDok string `json:"id_dok" validate:"required,contract_id"`
	Bbic  string `json:"bbic" validate:"required"`
	Biban string `json:"biban" validate:"required"`
}

// Detail is one budget source row.
type Detail struct {
	IDDok string  `json:"id_dok" validate:"required,contract_id"`
	Suma  float64 `json:"suma" validate:"required,gt=0"`
	Piban string  `json:"piban" validate:"required"`
	Byear int     `json:"byear" validate:"required,gt=2000,lt=3000"`
}

// RegisterResponse is the treasury's acknowledgement of a registration.
type RegisterResponse struct {
	IDDok  string `json:"id_dok"`
	NumRow string `json:"num_row"`
}

// QueueResponse is one status queue's content.
type QueueResponse struct {
	Contract []TreasuryContract `json:"contract"`
}

// TreasuryContract is one status event from a treasury queue.
type TreasuryContract struct {
	IDDok   string `json:"id_dok"`
	IDHist  string `json:"id_hist"`
	Status  string `json:"status"`
	StDate  string `json:"st_date"`
	RegNom  string `json:"reg_nom"`
	RegDate string `json:"reg_date"`
	Descr   string `json:"descr"`
}
