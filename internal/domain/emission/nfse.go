package emission

import "strings"

// Endereco representa o endereço de prestador ou tomador
type Endereco struct {
	Logradouro  string `json:"logradouro"`
	Numero      string `json:"numero"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro"`
	Municipio   string `json:"municipio"`
	UF          string `json:"uf"`
	CEP         string `json:"cep"`
}

// Prestador representa o prestador do serviço
type Prestador struct {
	CNPJ               string   `json:"cnpj"`
	InscricaoMunicipal string   `json:"inscricaoMunicipal,omitempty"`
	RazaoSocial        string   `json:"razaoSocial"`
	Endereco           Endereco `json:"endereco"`
}

// Tomador representa o tomador do serviço
type Tomador struct {
	CPFCNPJ     string   `json:"cpfCnpj"`
	RazaoSocial string   `json:"razaoSocial"`
	Email       string   `json:"email,omitempty"`
	Endereco    Endereco `json:"endereco"`
}

// Servico representa o serviço prestado e seu valor já calculado pelo chamador
type Servico struct {
	CodigoMunicipal  string  `json:"codigoMunicipal,omitempty"`
	CodigoNacional   string  `json:"codigoNacional,omitempty"`
	CodigoTributacao string  `json:"codigoTributacao,omitempty"`
	Descricao        string  `json:"descricao"`
	Valor            float64 `json:"valor"`
}

// EmitirNfseInput é a requisição canônica de emissão de NFS-e
type EmitirNfseInput struct {
	Prestador         Prestador `json:"prestador"`
	Tomador           Tomador   `json:"tomador"`
	Servico           Servico   `json:"servico"`
	ReferenciaExterna string    `json:"referenciaExterna,omitempty"`
}

func missingEndereco(prefix string, e Endereco, fields *[]string) {
	if strings.TrimSpace(e.Logradouro) == "" {
		*fields = append(*fields, prefix+".logradouro")
	}
	if strings.TrimSpace(e.Numero) == "" {
		*fields = append(*fields, prefix+".numero")
	}
	if strings.TrimSpace(e.Bairro) == "" {
		*fields = append(*fields, prefix+".bairro")
	}
	if strings.TrimSpace(e.Municipio) == "" {
		*fields = append(*fields, prefix+".municipio")
	}
	if strings.TrimSpace(e.UF) == "" {
		*fields = append(*fields, prefix+".uf")
	}
	if strings.TrimSpace(e.CEP) == "" {
		*fields = append(*fields, prefix+".cep")
	}
}

// Validate verifica os campos estruturalmente obrigatórios da requisição
func (in *EmitirNfseInput) Validate() error {
	var fields []string

	if strings.TrimSpace(in.Prestador.CNPJ) == "" {
		fields = append(fields, "prestador.cnpj")
	}
	if strings.TrimSpace(in.Prestador.RazaoSocial) == "" {
		fields = append(fields, "prestador.razaoSocial")
	}
	missingEndereco("prestador.endereco", in.Prestador.Endereco, &fields)

	if strings.TrimSpace(in.Tomador.CPFCNPJ) == "" {
		fields = append(fields, "tomador.cpfCnpj")
	}
	if strings.TrimSpace(in.Tomador.RazaoSocial) == "" {
		fields = append(fields, "tomador.razaoSocial")
	}
	missingEndereco("tomador.endereco", in.Tomador.Endereco, &fields)

	if strings.TrimSpace(in.Servico.Descricao) == "" {
		fields = append(fields, "servico.descricao")
	}
	if in.Servico.Valor <= 0 {
		fields = append(fields, "servico.valor")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NormalizedReference retorna a referência externa normalizada (vazia quando ausente)
func (in *EmitirNfseInput) NormalizedReference() string {
	return strings.TrimSpace(in.ReferenciaExterna)
}
