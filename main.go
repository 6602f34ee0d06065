package main

import (
	"log"

	istanbul "github.com/hyperledger-labs/yui-wasm-relayer/chains/istanbul/module"
	mock "github.com/hyperledger-labs/yui-wasm-relayer/chains/mock/module"
	tendermint "github.com/hyperledger-labs/yui-wasm-relayer/chains/tendermint/module"
	"github.com/hyperledger-labs/yui-wasm-relayer/cmd"
)

func main() {
	if err := cmd.Execute(
		tendermint.Module{},
		istanbul.Module{},
		mock.Module{},
	); err != nil {
		log.Fatal(err)
	}
}
