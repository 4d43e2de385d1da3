package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はスキーマのマイグレーション（MongoDBではインデックス作成）を実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandAddUser は端末からユーザーを登録することを示す。
	CommandAddUser Command = "adduser"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "adduser":
		return CommandAddUser
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// commandArgs はサブコマンド名を除いた引数を返す。
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return args[1:]
}
