package nuvemfiscal

// Ambiente aceito pela API de DPS
type Ambiente string

const (
	AmbienteHomologacao Ambiente = "homologacao"
	AmbienteProducao    Ambiente = "producao"
)

// DpsRequest é o formato de emissão de DPS da NuvemFiscal
type DpsRequest struct {
	Ambiente   Ambiente `json:"ambiente"`
	Referencia string   `json:"referencia,omitempty"`
	InfDPS     InfDPS   `json:"infDPS"`
}

// InfDPS contém os dados da declaração de prestação de serviço
type InfDPS struct {
	DhEmi   string  `json:"dhEmi"`
	Prest   Prest   `json:"prest"`
	Toma    *Toma   `json:"toma,omitempty"`
	Serv    Serv    `json:"serv"`
	Valores Valores `json:"valores"`
}

// Prest identifica o prestador
type Prest struct {
	CNPJ  string `json:"CNPJ,omitempty"`
	CPF   string `json:"CPF,omitempty"`
	IM    string `json:"IM,omitempty"`
	XNome string `json:"xNome,omitempty"`
}

// Toma identifica o tomador
type Toma struct {
	CNPJ  string `json:"CNPJ,omitempty"`
	CPF   string `json:"CPF,omitempty"`
	XNome string `json:"xNome,omitempty"`
	Email string `json:"email,omitempty"`
	End   *End   `json:"end,omitempty"`
}

// End é o endereço do tomador
type End struct {
	XLgr    string `json:"xLgr,omitempty"`
	Nro     string `json:"nro,omitempty"`
	XBairro string `json:"xBairro,omitempty"`
	CMun    string `json:"cMun,omitempty"`
	XMun    string `json:"xMun,omitempty"`
	UF      string `json:"UF,omitempty"`
	CEP     string `json:"CEP,omitempty"`
}

// Serv descreve o serviço prestado
type Serv struct {
	CServ CServ `json:"cServ"`
}

// CServ codifica o serviço
type CServ struct {
	CTribNac  string `json:"cTribNac,omitempty"`
	XDescServ string `json:"xDescServ,omitempty"`
	CCnae     string `json:"cCnae,omitempty"`
}

// Valores contém os valores já calculados pelo chamador
type Valores struct {
	VServPrest VServPrest `json:"vServPrest"`
}

// VServPrest é o valor do serviço prestado
type VServPrest struct {
	VServ float64 `json:"vServ"`
}

// NfseResponse é o envelope de resposta das operações de NFS-e
type NfseResponse struct {
	ID         string `json:"id"`
	Ambiente   string `json:"ambiente,omitempty"`
	Referencia string `json:"referencia,omitempty"`
	Status     string `json:"status,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}
