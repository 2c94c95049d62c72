package main

import (
	"github.com/YuCat-OVO/DApi/cmd"
	"github.com/joho/godotenv"
)

func main() {

	godotenv.Load()
	cmd.Execute()
}
