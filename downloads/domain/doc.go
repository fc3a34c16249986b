// Package domain define contratos e tipos de domínio para o contador de
// downloads da loja confiável de mods.
//
// Este pacote não depende de net/http nem de implementações concretas
// (GitHub, Redis, SQLite). A intenção é permitir testes de unidade puros e
// desacoplar regras de negócio de detalhes de infraestrutura.
package domain
