package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the DDL statements that create every table used by the
// service.  Statements are idempotent so Migrate can run on each boot.
// vagas only holds open sessions, so UNIQUE(empresa_id, placa) is the
// "one open session per plate" rule.  relatorios is keyed by vaga_id
// and entry time so a retried checkout cannot write a second report,
// while a vagas id handed out again after an AUTO_INCREMENT reset (InnoDB
// before MySQL 8.0) still gets its own report.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS empresas (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		nome VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		telefone VARCHAR(20) NOT NULL,
		cnpj VARCHAR(20) NOT NULL,
		senha_hash VARCHAR(255) NOT NULL,
		email_confirmado BOOLEAN NOT NULL DEFAULT FALSE,
		plano_titulo VARCHAR(100) NOT NULL DEFAULT '',
		plano_preco VARCHAR(20) NOT NULL DEFAULT '',
		pagamento_id VARCHAR(100) NULL,
		pagamento_status VARCHAR(40) NULL,
		pagamento_link VARCHAR(255) NULL,
		data_expiracao DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY empresas_email_unique (email),
		UNIQUE KEY empresas_cnpj_unique (cnpj)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS configuracoes (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		empresa_id BIGINT UNSIGNED NOT NULL,
		valor_hora DECIMAL(10,2) NOT NULL DEFAULT 10.00,
		valor_diaria DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		valor_mensalista DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		arredondamento INT NOT NULL DEFAULT 15,
		forma_pagamento VARCHAR(20) NOT NULL DEFAULT 'Pix',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY configuracoes_empresa_unique (empresa_id),
		CONSTRAINT configuracoes_empresa_fk FOREIGN KEY (empresa_id) REFERENCES empresas(id) ON DELETE CASCADE,
		CONSTRAINT configuracoes_arredondamento_positive CHECK (arredondamento > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS vagas (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		empresa_id BIGINT UNSIGNED NOT NULL,
		placa VARCHAR(10) NOT NULL,
		tipo VARCHAR(20) NOT NULL,
		data_hora DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY vagas_empresa_placa_unique (empresa_id, placa),
		CONSTRAINT vagas_empresa_fk FOREIGN KEY (empresa_id) REFERENCES empresas(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS relatorios (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		empresa_id BIGINT UNSIGNED NOT NULL,
		vaga_id BIGINT UNSIGNED NOT NULL,
		placa VARCHAR(20) NOT NULL,
		tipo VARCHAR(20) NOT NULL,
		data_hora_entrada DATETIME NOT NULL,
		data_hora_saida DATETIME NOT NULL,
		duracao VARCHAR(50) NOT NULL,
		duracao_segundos BIGINT NOT NULL,
		valor_pago DECIMAL(10,2) NOT NULL,
		forma_pagamento VARCHAR(20) NULL,
		status_pagamento VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY relatorios_empresa_vaga_unique (empresa_id, vaga_id, data_hora_entrada),
		KEY relatorios_empresa_saida_idx (empresa_id, data_hora_saida),
		KEY relatorios_empresa_entrada_idx (empresa_id, data_hora_entrada),
		CONSTRAINT relatorios_empresa_fk FOREIGN KEY (empresa_id) REFERENCES empresas(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS mensalistas (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		empresa_id BIGINT UNSIGNED NOT NULL,
		nome VARCHAR(255) NOT NULL,
		placa VARCHAR(20) NOT NULL,
		veiculo VARCHAR(50) NOT NULL DEFAULT '',
		cor VARCHAR(30) NOT NULL DEFAULT '',
		cpf VARCHAR(20) NOT NULL,
		telefone VARCHAR(20) NULL,
		validade DATETIME NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'ativo',
		ultimo_pagamento DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY mensalistas_placa_empresa_unique (placa, empresa_id),
		CONSTRAINT mensalistas_empresa_fk FOREIGN KEY (empresa_id) REFERENCES empresas(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		empresa_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY refresh_tokens_hash_unique (token_hash),
		CONSTRAINT refresh_tokens_empresa_fk FOREIGN KEY (empresa_id) REFERENCES empresas(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.  It stops at the first failing
// statement and reports which table could not be created.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
